// Command perf-regression compares two `go test -bench` outputs and fails when
// a tracked permission benchmark slows down past the threshold.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// trackedMetrics lists the benchmarks gated in CI and the units compared.
var trackedMetrics = map[string][]string{
	"BenchmarkCheckStrict":        {"ns/op", "allocs/op"},
	"BenchmarkProtectedProcedure": {"ns/op", "allocs/op"},
	"BenchmarkParseAccess":        {"ns/op"},
	"BenchmarkBitFieldHas":        {"ns/op", "allocs/op"},
}

// samples maps benchmark name to unit to every observed value.
type samples map[string]map[string][]float64

type comparison struct {
	benchmark string
	unit      string
	baseline  float64
	candidate float64
	delta     float64
}

type report struct {
	rows     []comparison
	failures []string
}

func (r report) ok() bool { return len(r.failures) == 0 }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("perf-regression", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baselinePath := fs.String("baseline", "", "path to baseline benchmark output")
	candidatePath := fs.String("candidate", "", "path to candidate benchmark output")
	threshold := fs.Float64("threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *baselinePath == "" || *candidatePath == "" {
		fmt.Fprintln(stderr, "-baseline and -candidate are required")
		return 2
	}
	if *threshold < 0 {
		fmt.Fprintln(stderr, "-threshold must be >= 0")
		return 2
	}

	baseline, err := parseFile(*baselinePath)
	if err != nil {
		fmt.Fprintf(stderr, "parse baseline: %v\n", err)
		return 1
	}
	candidate, err := parseFile(*candidatePath)
	if err != nil {
		fmt.Fprintf(stderr, "parse candidate: %v\n", err)
		return 1
	}

	rep := compare(baseline, candidate, trackedMetrics, *threshold)
	rep.write(stdout)
	if !rep.ok() {
		fmt.Fprintln(stderr, "performance regression threshold exceeded:")
		for _, failure := range rep.failures {
			fmt.Fprintf(stderr, "  - %s\n", failure)
		}
		return 1
	}
	return 0
}

func parseFile(path string) (samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file, trackedMetrics)
}

// parseBenchmarks reads benchmark result lines for the tracked names. Lines
// for other benchmarks and non-benchmark output are skipped.
func parseBenchmarks(r io.Reader, tracked map[string][]string) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		units, ok := out[name]
		if !ok {
			units = map[string][]float64{}
			out[name] = units
		}

		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			units[fields[i+1]] = append(units[fields[i+1]], value)
		}
	}
	return out, scanner.Err()
}

// compare checks every tracked benchmark unit by median. A zero baseline only
// fails when the candidate is above zero.
func compare(baseline, candidate samples, tracked map[string][]string, threshold float64) report {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var rep report
	for _, name := range names {
		for _, unit := range tracked[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				rep.failures = append(rep.failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}

			row := comparison{benchmark: name, unit: unit, baseline: median(base), candidate: median(cand)}
			switch {
			case row.baseline < 0:
				rep.failures = append(rep.failures, fmt.Sprintf("invalid baseline median for %s %s", name, unit))
				continue
			case row.baseline == 0 && row.candidate > 0:
				rep.rows = append(rep.rows, row)
				rep.failures = append(rep.failures, fmt.Sprintf("%s %s rose from 0 to %.3f", name, unit, row.candidate))
				continue
			case row.baseline > 0:
				row.delta = (row.candidate - row.baseline) / row.baseline
			}

			rep.rows = append(rep.rows, row)
			if row.delta > threshold {
				rep.failures = append(rep.failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, row.delta*100, threshold*100))
			}
		}
	}
	return rep
}

func (r report) write(w io.Writer) {
	fmt.Fprintln(w, "perf regression check:")
	fmt.Fprintln(w, "benchmark metric baseline candidate delta")
	for _, row := range r.rows {
		fmt.Fprintf(w, "%s %s %.3f %.3f %+0.2f%%\n", row.benchmark, row.unit, row.baseline, row.candidate, row.delta*100)
	}
}

// trimProcs strips the -GOMAXPROCS suffix go test appends to names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
