package capture

import (
	"errors"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"stats.g.doubleclick.net", true},
		{"PAGEAD2.GOOGLESYNDICATION.COM", true},
		{"googletagmanager.com.", true},
		{"example.com", false},
		{"notdoubleclick.net", false},
		{"twitter.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isAdDomain(tt.host); got != tt.want {
			t.Errorf("isAdDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestBlockedTypeSet(t *testing.T) {
	set := blockedTypeSet([]string{"Image", "Font", "Bogus"})
	if len(set) != 2 {
		t.Fatalf("len = %d, want 2", len(set))
	}
	if _, ok := set[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image should be blocked")
	}
	if _, ok := set[proto.NetworkResourceTypeFont]; !ok {
		t.Error("Font should be blocked")
	}
	if _, ok := set[proto.NetworkResourceTypeDocument]; ok {
		t.Error("Document must never be blocked")
	}
}

func TestSetupHijack_NothingToBlock(t *testing.T) {
	if r, err := setupHijack(nil, nil, false); r != nil || err != nil {
		t.Errorf("no router expected when nothing is blocked, got %v, %v", r, err)
	}
	if r, err := setupHijack(nil, []string{"Unknown"}, false); r != nil || err != nil {
		t.Errorf("unknown resource names should not install a router, got %v, %v", r, err)
	}
}

type fakeRoutes struct {
	patterns []string
	err      error
}

func (f *fakeRoutes) Add(pattern string, _ proto.NetworkResourceType, _ func(*rod.Hijack)) error {
	f.patterns = append(f.patterns, pattern)
	return f.err
}

func TestAddBlocker(t *testing.T) {
	blocked := blockedTypeSet([]string{"Image"})

	ok := &fakeRoutes{}
	if err := addBlocker(ok, blocked, true); err != nil {
		t.Fatalf("addBlocker: %v", err)
	}
	if len(ok.patterns) != 1 || ok.patterns[0] != "*" {
		t.Errorf("patterns = %v, want one catch-all route", ok.patterns)
	}

	cause := errors.New("bad pattern")
	if err := addBlocker(&fakeRoutes{err: cause}, blocked, false); !errors.Is(err, cause) {
		t.Errorf("registration error not returned, got %v", err)
	}
}
