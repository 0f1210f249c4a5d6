package run

import (
	"strings"
	"testing"
)

func TestScan(t *testing.T) {
	tests := map[string]struct {
		output   string
		code     int
		finished int
	}{
		"pass":      {"=== RUN TestLink\r\n--- PASS: TestLink\r\nPASS\r\n", 0, 1},
		"fail":      {"--- FAIL: TestLink\nFAIL\nPASS\n", 1, 1},
		"panic":     {"panic: runtime error\ngoroutine 1\n", 1, 1},
		"fatal":     {"fatal error: out of memory\n", 1, 1},
		"noVerdict": {"hello\n", 2, 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			finished := 0
			code := scan(strings.NewReader(tc.output), func() { finished++ })
			if code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, code)
			}
			if finished != tc.finished {
				t.Fatalf("expected %d calls, got %d", tc.finished, finished)
			}
		})
	}
}
