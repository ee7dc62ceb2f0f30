package batch

import "sync"

// maxWorkers caps the pool size. Alignment is CPU-bound, so workers
// beyond the core count only add scheduling overhead.
const maxWorkers = 32

// WorkerPool distributes jobs across a fixed set of worker goroutines
// and collects their results on a single channel.
type WorkerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// NewWorkerPool sizes a pool for numJobs jobs. If numWorkers is zero or
// negative it defaults to maxWorkers, and a pool is never larger than
// the number of jobs it will run.
func NewWorkerPool[Job any, Result any](numWorkers, numJobs int) *WorkerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = maxWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &WorkerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Start launches the workers. Each job is passed to workerFn and the
// returned result is delivered on the results channel.
func (p *WorkerPool[Job, Result]) Start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// Submit queues one job.
func (p *WorkerPool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs and closes the results channel once the
// workers have drained the queue.
func (p *WorkerPool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the channel on which worker outputs are delivered.
func (p *WorkerPool[Job, Result]) Results() <-chan Result {
	return p.results
}
