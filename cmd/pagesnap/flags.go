package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/pagesnap/models"
)

// durationFlag accepts a Go duration ("45s") or a bare number of seconds.
type durationFlag time.Duration

func (d *durationFlag) String() string { return time.Duration(*d).String() }

func (d *durationFlag) Set(s string) error {
	if v, err := time.ParseDuration(s); err == nil {
		if v <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		*d = durationFlag(v)
		return nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return fmt.Errorf("invalid timeout %q: want a duration like 45s", s)
	}
	*d = durationFlag(time.Duration(secs) * time.Second)
	return nil
}

func (d *durationFlag) Type() string { return "duration" }

func (d durationFlag) Duration() time.Duration { return time.Duration(d) }

// parseHeaders turns repeated key=value flags into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, models.NewCaptureError(
				models.ErrCodeInvalidInput,
				fmt.Sprintf("invalid header %q: want key=value", p),
				nil,
			)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}
