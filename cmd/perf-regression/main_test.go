package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var gated = map[string][]string{
	"BenchmarkCheckStrict": {"ns/op", "allocs/op"},
	"BenchmarkBitFieldHas": {"ns/op", "allocs/op"},
}

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/permguard
BenchmarkCheckStrict-8    	   90000	     12000 ns/op	     512 B/op	       9 allocs/op
BenchmarkCheckStrict-8    	   90000	     12400 ns/op	     512 B/op	       9 allocs/op
BenchmarkCheckStrict-8    	   90000	     11800 ns/op	     512 B/op	       9 allocs/op
PASS
pkg: github.com/MrEthical07/permguard/bitfield
BenchmarkBitFieldHas-8    	1000000000	         1.200 ns/op	       0 B/op	       0 allocs/op
BenchmarkBitFieldHas-8    	1000000000	         1.100 ns/op	       0 B/op	       0 allocs/op
BenchmarkResolveNames-8   	 5000000	       240.0 ns/op	       0 B/op	       0 allocs/op
ok  	github.com/MrEthical07/permguard/bitfield	3.1s
`

func benchOutput(strictNs, hasAllocs string) string {
	return "BenchmarkCheckStrict-8 90000 " + strictNs + " ns/op 512 B/op 9 allocs/op\n" +
		"BenchmarkBitFieldHas-8 1000000000 1.150 ns/op 0 B/op " + hasAllocs + " allocs/op\n"
}

func mustParse(t *testing.T, out string) samples {
	t.Helper()
	s, err := parseBenchmarks(strings.NewReader(out), gated)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return s
}

func TestParseBenchmarksTracksOnlyGatedNames(t *testing.T) {
	s := mustParse(t, baselineOutput)

	if got := s["BenchmarkCheckStrict"]["ns/op"]; len(got) != 3 || got[0] != 12000 {
		t.Fatalf("unexpected strict samples %v", got)
	}
	if got := s["BenchmarkBitFieldHas"]["allocs/op"]; len(got) != 2 || got[0] != 0 {
		t.Fatalf("unexpected has alloc samples %v", got)
	}
	if _, ok := s["BenchmarkResolveNames"]; ok {
		t.Fatal("untracked benchmark must be skipped")
	}
}

func TestCompareVerdicts(t *testing.T) {
	baseline := mustParse(t, baselineOutput)

	tests := []struct {
		name      string
		candidate string
		wantOK    bool
		wantMsg   string
	}{
		{name: "within threshold", candidate: benchOutput("13000", "0"), wantOK: true},
		{name: "faster", candidate: benchOutput("9000", "0"), wantOK: true},
		{name: "strict regressed", candidate: benchOutput("20000", "0"), wantMsg: "BenchmarkCheckStrict ns/op regressed"},
		{name: "has started allocating", candidate: benchOutput("12000", "1"), wantMsg: "BenchmarkBitFieldHas allocs/op rose from 0"},
		{name: "missing benchmark", candidate: "BenchmarkCheckStrict-8 90000 12000 ns/op 9 allocs/op\n", wantMsg: "missing samples for BenchmarkBitFieldHas ns/op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := compare(baseline, mustParse(t, tt.candidate), gated, defaultThreshold)
			if rep.ok() != tt.wantOK {
				t.Fatalf("ok=%v, failures %v", rep.ok(), rep.failures)
			}
			if tt.wantMsg == "" {
				return
			}
			joined := strings.Join(rep.failures, "\n")
			if !strings.Contains(joined, tt.wantMsg) {
				t.Fatalf("expected failure containing %q, got %v", tt.wantMsg, rep.failures)
			}
		})
	}
}

func TestCompareUsesMedian(t *testing.T) {
	baseline := mustParse(t, baselineOutput)
	// One outlier among three runs does not move the median.
	candidate := mustParse(t, benchOutput("12100", "0")+benchOutput("99999", "0")+benchOutput("12200", "0"))

	rep := compare(baseline, candidate, gated, defaultThreshold)
	if !rep.ok() {
		t.Fatalf("expected pass, got %v", rep.failures)
	}
	for _, row := range rep.rows {
		if row.benchmark == "BenchmarkCheckStrict" && row.unit == "ns/op" && row.candidate != 12200 {
			t.Fatalf("expected median 12200, got %v", row.candidate)
		}
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	full := baselineOutput +
		"BenchmarkProtectedProcedure-8 50000 21000 ns/op 14 allocs/op\n" +
		"BenchmarkParseAccess-8 80000 15000 ns/op 40 allocs/op\n"
	base := write("base.txt", full)
	same := write("same.txt", full)
	slow := write("slow.txt", strings.ReplaceAll(full, "15000 ns/op", "30000 ns/op"))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-baseline", base, "-candidate", same}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "BenchmarkCheckStrict ns/op") {
		t.Fatalf("expected table output, got %q", stdout.String())
	}

	stderr.Reset()
	if code := run([]string{"-baseline", base, "-candidate", slow}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "BenchmarkParseAccess ns/op regressed") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}

	if code := run([]string{"-baseline", base}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
	if code := run([]string{"-baseline", base, "-candidate", filepath.Join(dir, "absent.txt")}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1 for unreadable candidate, got %d", code)
	}
}
