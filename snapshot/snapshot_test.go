package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/use-agent/pagesnap/models"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		file    string
		want    string
		wantErr bool
	}{
		{"trailing separator", "/tmp/snap/", "", "/tmp/snap/output.html", false},
		{"no trailing separator", "/tmp/snap", "", "/tmp/snap/output.html", false},
		{"empty dir", "", "", "output.html", false},
		{"relative dir", "./out/", "", "out/output.html", false},
		{"custom name", "/tmp/snap", "before.html", "/tmp/snap/before.html", false},
		{"name with separator", "/tmp", "a/b.html", "", true},
		{"dot dot", "/tmp", "..", "", true},
		{"dot", "/tmp", ".", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Path(tt.dir, tt.file)
			if tt.wantErr {
				if models.CodeOf(err) != models.ErrCodeInvalidInput {
					t.Fatalf("want INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Path(%q, %q) = %q, want %q", tt.dir, tt.file, got, tt.want)
			}
		})
	}
}

func TestWrite_OverwritesFully(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/snap", 0o755); err != nil {
		t.Fatal(err)
	}
	w := NewWriter(fs)

	first := "<html><body>" + strings.Repeat("first ", 100) + "</body></html>"
	second := "<html><body>second</body></html>"

	if err := w.Write("/snap/output.html", first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.Write("/snap/output.html", second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := w.Read("/snap/output.html")
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Errorf("content = %q, want %q", got, second)
	}
}

func TestWrite_LeavesNoTemporaryFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll("/snap", 0o755)
	w := NewWriter(fs)

	if err := w.Write("/snap/output.html", "<html></html>"); err != nil {
		t.Fatal(err)
	}

	entries, err := afero.ReadDir(fs, "/snap")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "output.html" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory entries = %v, want only output.html", names)
	}
}

func TestWrite_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(afero.NewOsFs())

	path := filepath.Join(dir, "missing", "output.html")
	err := w.Write(path, "<html></html>")
	if !models.IsWrite(err) {
		t.Fatalf("want WRITE_FAILED, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("no file should exist at %s", path)
	}
}

func TestWrite_CreateDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, WithCreateDirs(true))

	if err := w.Write("/a/b/c/output.html", "<html></html>"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/a/b/c/output.html"); !ok {
		t.Error("snapshot should exist")
	}
}

func TestWrite_OSPermissionsAndContent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(nil)

	path, err := Path(dir+string(filepath.Separator), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(path, "<html><body>ok</body></html>"); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, DefaultFileName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWrite_EmptyPath(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs())
	if err := w.Write("", "x"); !models.IsWrite(err) {
		t.Errorf("want WRITE_FAILED, got %v", err)
	}
}

func TestDigest(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(""); got != empty {
		t.Errorf("Digest(\"\") = %s", got)
	}
	if Digest("a") == Digest("b") {
		t.Error("different inputs should have different digests")
	}
}
