package dynamo

import "sync"

// Range is a half-open interval [Start, End) of realization indices.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, n) into contiguous ranges, one per worker. Every worker gets
// n/workers items and the last one also takes the remainder. Workers are capped at n.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	points := n / workers
	ranges := make([]Range, workers)
	for w := 0; w < workers; w++ {
		start := w * points
		end := start + points
		if w == workers-1 {
			end = n
		}
		ranges[w] = Range{Start: start, End: end}
	}
	return ranges
}

// ParallelFor executes fn over the partition of [0, n) with one goroutine per range.
func ParallelFor(n, workers int, fn func(worker int, r Range)) {
	ranges := Partition(n, workers)
	if len(ranges) == 1 {
		fn(0, ranges[0])
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(ranges))

	for w, r := range ranges {
		go func(worker int, r Range) {
			defer wg.Done()
			fn(worker, r)
		}(w, r)
	}

	wg.Wait()
}
