package scanner

import "sync"

// WorkerPool manages persistent scanning workers, distributing parse jobs
// across CPU cores.
type WorkerPool struct {
	// jobQueue buffers scanning jobs for worker distribution
	jobQueue chan ScanJob
	// workers holds references to all active worker goroutines
	workers []*ScanWorker
	// workerCount defines the number of concurrent workers
	workerCount int
	// scanner is the shared project scanner instance
	scanner *ProjectScanner
	// stop signals all workers to terminate gracefully
	stop chan struct{}
	// stopped tracks pool shutdown state
	stopped bool
	// mu protects concurrent access to pool state
	mu sync.RWMutex
}

// ScanWorker is a persistent worker goroutine that processes scanning jobs
// from the shared job queue.
type ScanWorker struct {
	id       int
	jobQueue <-chan ScanJob
	scanner  *ProjectScanner
	stop     chan struct{}
}

// NewWorkerPool creates a new worker pool for scanning operations.
func NewWorkerPool(workerCount int, scanner *ProjectScanner) *WorkerPool {
	pool := &WorkerPool{
		jobQueue:    make(chan ScanJob, workerCount*2),
		workerCount: workerCount,
		scanner:     scanner,
		stop:        make(chan struct{}),
	}

	pool.workers = make([]*ScanWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		worker := &ScanWorker{
			id:       i,
			jobQueue: pool.jobQueue,
			scanner:  scanner,
			stop:     make(chan struct{}),
		}
		pool.workers[i] = worker
		go worker.start()
	}

	return pool
}

// start begins the worker's processing loop.
func (w *ScanWorker) start() {
	for {
		select {
		case job := <-w.jobQueue:
			err := w.scanner.scanFileInternal(job.filePath)
			job.result <- ScanResult{
				filePath: job.filePath,
				err:      err,
			}
		case <-w.stop:
			return
		}
	}
}

// Stop gracefully shuts down the worker pool.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.stopped = true
	close(p.stop)

	for _, worker := range p.workers {
		close(worker.stop)
	}

	close(p.jobQueue)
}
