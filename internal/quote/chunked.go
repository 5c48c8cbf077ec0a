package quote

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// ChunkLines is the approximate number of lines fanned out to a single
// worker. Chunk boundaries are always line-aligned: a worker never sees a
// partial line.
const ChunkLines = 100_000

// chunk is one unit of work: a contiguous slice of already-read lines.
type chunk struct {
	lines []string
}

// chunkResult carries a worker's independently-parsed output. Workers never
// share mutable state; each returns its own record slice and stats, which
// ParseParallel merges once every worker has finished — the same invariant
// the chunked-processing worker pool this is grounded on states explicitly.
type chunkResult struct {
	records []Record
	stats   Stats
}

// ParseParallel splits r into line-aligned chunks of about ChunkLines lines
// and parses them across a worker pool sized to workers (0 or negative means
// runtime.NumCPU()-1, floored at 1). The order records are returned in is
// unspecified: callers rely on the store's (date, ticker) primary key to
// deduplicate, not on slice order.
func ParseParallel(ctx context.Context, r io.Reader, workers int) ([]Record, Stats, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan chunk, workers*2)
	results := make(chan chunkResult, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(jobs, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	readErr := make(chan error, 1)
	go func() {
		defer close(jobs)
		readErr <- produceChunks(ctx, r, jobs)
	}()

	var all []Record
	var stats Stats
	for res := range results {
		all = append(all, res.records...)
		stats.Parsed += res.stats.Parsed
		stats.Skipped += res.stats.Skipped
		stats.Malformed += res.stats.Malformed
	}

	if err := <-readErr; err != nil {
		return nil, Stats{}, fmt.Errorf("reading chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	return all, stats, nil
}

// produceChunks reads r line by line, grouping ChunkLines lines per chunk,
// and sends each chunk to jobs.
func produceChunks(ctx context.Context, r io.Reader, jobs chan<- chunk) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	buf := make([]string, 0, ChunkLines)
	send := func() error {
		if len(buf) == 0 {
			return nil
		}
		lines := make([]string, len(buf))
		copy(lines, buf)
		select {
		case jobs <- chunk{lines: lines}:
		case <-ctx.Done():
			return ctx.Err()
		}
		buf = buf[:0]
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf = append(buf, scanner.Text())
		if len(buf) >= ChunkLines {
			if err := send(); err != nil {
				return err
			}
		}
	}
	if err := send(); err != nil {
		return err
	}
	return scanner.Err()
}

// worker parses chunks until jobs closes, sending one chunkResult per chunk.
func worker(jobs <-chan chunk, results chan<- chunkResult) {
	for c := range jobs {
		var stats Stats
		records := make([]Record, 0, len(c.lines))
		for _, line := range c.lines {
			rec, ok, err := ParseLine(line)
			switch {
			case err != nil:
				stats.Malformed++
			case !ok:
				stats.Skipped++
			default:
				stats.Parsed++
				records = append(records, rec)
			}
		}
		results <- chunkResult{records: records, stats: stats}
	}
}
