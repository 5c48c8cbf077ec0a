package quote

import (
	"context"
	"strings"
	"testing"
)

// TestParseParallelMatchesSingleThreaded verifies the multiset of records
// emitted by the chunked worker-pool parser equals the single-threaded
// parser's output, for a small synthetic "yearly archive" with a mix of
// matching/non-matching tickers. Its 500 lines are fewer than ChunkLines, so
// the whole input forms a single chunk.
func TestParseParallelMatchesSingleThreaded(t *testing.T) {
	var lines []string
	for i := 0; i < 250; i++ {
		lines = append(lines, buildLine("01", "12", "20250318", "ABCD11", 1000, 1100, 900, 1050, 500000, 12, 300))
		lines = append(lines, buildLine("01", "02", "20250318", "PETR4", 1000, 1100, 900, 1050, 500000, 12, 300))
	}
	input := strings.Join(lines, "\n")

	single, singleStats, err := ParseLines(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	// ChunkLines is a constant, so this input is one chunk; running with
	// four workers still exercises the worker pool and the result merge.
	parallel, parallelStats, err := ParseParallel(context.Background(), strings.NewReader(input), 4)
	if err != nil {
		t.Fatal(err)
	}

	if len(single) != len(parallel) {
		t.Fatalf("single=%d parallel=%d records", len(single), len(parallel))
	}
	if singleStats != parallelStats {
		t.Fatalf("single stats=%+v parallel stats=%+v", singleStats, parallelStats)
	}

	counts := map[string]int{}
	for _, r := range single {
		counts[r.Ticker+"|"+r.Date.String()]++
	}
	for _, r := range parallel {
		counts[r.Ticker+"|"+r.Date.String()]--
	}
	for k, c := range counts {
		if c != 0 {
			t.Fatalf("multiset mismatch for %s: delta %d", k, c)
		}
	}
}

func TestParseParallelEmptyInput(t *testing.T) {
	records, stats, err := ParseParallel(context.Background(), strings.NewReader(""), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 || stats.Parsed != 0 {
		t.Fatalf("expected empty output, got %d records stats=%+v", len(records), stats)
	}
}
