// benchmark measures capture latency against a running `pagesnap serve`.
//
// Each URL is captured -runs times; per-stage timings are averaged and
// printed as a table, and the raw samples are written as JSON.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/use-agent/pagesnap/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "pagesnap API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "captures per URL")
	wait   = flag.String("wait", models.WaitLoad, "load strategy for every capture")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering static, documentation and script-heavy pages.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

type sample struct {
	Label  string            `json:"label"`
	URL    string            `json:"url"`
	Run    int               `json:"run"`
	OK     bool              `json:"ok"`
	Code   string            `json:"code,omitempty"`
	Bytes  int               `json:"bytes"`
	Timing models.TimingInfo `json:"timing"`
}

func main() {
	flag.Parse()
	client := &http.Client{Timeout: 5 * time.Minute}

	var samples []sample
	for _, target := range testURLs {
		for run := 1; run <= *runs; run++ {
			s := captureOnce(client, target.URL, fmt.Sprintf("bench-%s-%d.html", target.Label, run))
			s.Label, s.URL, s.Run = target.Label, target.URL, run
			samples = append(samples, s)
			fmt.Fprintf(os.Stderr, "%-8s run %d: ok=%v total=%dms\n", target.Label, run, s.OK, s.Timing.TotalMs)
		}
	}

	printTable(samples)

	data, _ := json.MarshalIndent(samples, "", "  ")
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nResults written to %s\n", *output)
}

func captureOnce(client *http.Client, url, name string) sample {
	body, _ := json.Marshal(models.CaptureRequest{URL: url, Name: name, Wait: *wait})
	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/capture", bytes.NewReader(body))
	if err != nil {
		return sample{Code: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{Code: err.Error(), Timing: models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}}
	}
	defer resp.Body.Close()

	var cr models.CaptureResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return sample{Code: fmt.Sprintf("decode: %v", err)}
	}
	s := sample{OK: cr.Success, Bytes: cr.Bytes, Timing: cr.Timing}
	if cr.Error != nil {
		s.Code = cr.Error.Code
	}
	return s
}

func printTable(samples []sample) {
	type agg struct {
		n, ok int

		total, launch, navigation, extraction, write int64
	}
	order := []string{}
	byLabel := map[string]*agg{}
	for _, s := range samples {
		a, seen := byLabel[s.Label]
		if !seen {
			a = &agg{}
			byLabel[s.Label] = a
			order = append(order, s.Label)
		}
		a.n++
		if !s.OK {
			continue
		}
		a.ok++
		a.total += s.Timing.TotalMs
		a.launch += s.Timing.LaunchMs
		a.navigation += s.Timing.NavigationMs
		a.extraction += s.Timing.ExtractionMs
		a.write += s.Timing.WriteMs
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SITE\tOK\tTOTAL ms\tLAUNCH ms\tNAV ms\tEXTRACT ms\tWRITE ms")
	for _, label := range order {
		a := byLabel[label]
		if a.ok == 0 {
			fmt.Fprintf(w, "%s\t0/%d\t-\t-\t-\t-\t-\n", label, a.n)
			continue
		}
		n := int64(a.ok)
		fmt.Fprintf(w, "%s\t%d/%d\t%d\t%d\t%d\t%d\t%d\n", label, a.ok, a.n,
			a.total/n, a.launch/n, a.navigation/n, a.extraction/n, a.write/n)
	}
	w.Flush()
}
