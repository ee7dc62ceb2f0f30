// Package batch aligns whole chant corpora concurrently. Each chant is
// aligned independently (the core packages share no mutable state),
// per-chant results are collected in corpus order, and a summary counts
// the chants flagged for review or failed outright.
package batch

import (
	"context"
	"runtime"
	"time"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/cache"
	"github.com/chantlab/neuma/core/chant"
	"github.com/chantlab/neuma/internal/fixtures"
	"github.com/chantlab/neuma/internal/logging"
)

// Options configures a corpus run.
type Options struct {
	// Workers sets the pool size. Zero means one worker per CPU,
	// capped at the pool maximum.
	Workers int

	// Align is applied to every chant in the corpus.
	Align align.Options

	// Cache, when set, is consulted before aligning and updated after,
	// so repeated chants align once across runs.
	Cache *cache.AlignmentCache

	// OnProgress, when set, is called after each chant completes with
	// the number done so far and the corpus size. Calls are sequential.
	OnProgress func(done, total int)

	// JobID tags progress logging. Empty disables the per-run log events.
	JobID string
}

// Result is the alignment outcome for one chant.
type Result struct {
	Ref    chant.Ref    `json:"ref"`
	Pairs  []align.Pair `json:"pairs,omitempty"`
	Review bool         `json:"review"`
	Err    error        `json:"-"`
}

// Summary aggregates a corpus run.
type Summary struct {
	Total    int           `json:"total"`
	Reviewed int           `json:"reviewed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Run aligns every chant in the corpus and returns per-chant results in
// corpus order. Individual failures are carried in Result.Err and
// counted in the summary; Run itself fails only when the context is
// cancelled, and then the results of chants not yet aligned carry the
// context error.
func Run(ctx context.Context, corpus []fixtures.Chant, opts Options) ([]Result, Summary, error) {
	start := time.Now()
	summary := Summary{Total: len(corpus)}
	if len(corpus) == 0 {
		summary.Duration = time.Since(start)
		return nil, summary, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = min(runtime.NumCPU(), maxWorkers)
	}

	type job struct {
		index int
		chant fixtures.Chant
	}
	type outcome struct {
		index  int
		result Result
	}

	pool := NewWorkerPool[job, outcome](workers, len(corpus))
	pool.Start(func(j job) outcome {
		return outcome{index: j.index, result: alignOne(ctx, j.chant, opts)}
	})

	for i, c := range corpus {
		pool.Submit(job{index: i, chant: c})
	}
	pool.Close()

	results := make([]Result, len(corpus))
	done := 0
	for out := range pool.Results() {
		results[out.index] = out.result
		done++
		if opts.OnProgress != nil {
			opts.OnProgress(done, len(corpus))
		}
		if opts.JobID != "" {
			logging.BatchProgress(opts.JobID, done, len(corpus))
		}
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Review:
			summary.Reviewed++
		}
	}
	summary.Duration = time.Since(start)

	if opts.JobID != "" {
		logging.BatchComplete(opts.JobID, summary.Total, summary.Reviewed, summary.Failed, summary.Duration)
	}

	if err := ctx.Err(); err != nil {
		return results, summary, err
	}
	return results, summary, nil
}

// alignOne aligns a single chant, consulting the shared cache when one
// is configured.
func alignOne(ctx context.Context, c fixtures.Chant, opts Options) Result {
	res := Result{Ref: c.Ref}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	var key string
	if opts.Cache != nil {
		key = cache.AlignmentKey(c.FullText, c.Volpiano, opts.Align)
		if hit, ok := opts.Cache.Get(key); ok {
			res.Pairs = hit.Pairs
			res.Review = hit.Review
			return res
		}
	}

	start := time.Now()
	pairs, review, err := align.TextAndVolpiano(c.FullText, c.Volpiano, opts.Align)
	if err != nil {
		logging.AlignmentFailure(c.Ref.String(), err)
		res.Err = err
		return res
	}

	res.Pairs = pairs
	res.Review = review
	logging.AlignmentEvent(c.Ref.String(), sectionCount(pairs), review, time.Since(start))

	if opts.Cache != nil {
		opts.Cache.Put(key, cache.AlignedChant{Pairs: pairs, Review: review})
	}
	return res
}

// sectionCount reports how many sections the aligned chant has: one
// more than the number of internal barlines.
func sectionCount(pairs []align.Pair) int {
	n := 1
	for _, p := range pairs {
		if p.Text == "|" {
			n++
		}
	}
	return n
}
