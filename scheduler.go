package earnapp

import (
	"context"
	"sync"
	"time"
)

// Task is one account to run an endpoint for.
type Task struct {
	// Label identifies the account in results and logs. The token is never logged.
	Label  string
	Token  string
	Method string
}

type TaskResult struct {
	Label  string
	Result *Result
	Error  error
}

type Worker struct {
	id     string
	logger Logger
}

// Scheduler runs one dashboard endpoint for many accounts concurrently.
// Every task gets its own Session, so no state crosses accounts. Failed tasks
// are reported, never retried.
type Scheduler struct {
	workers      []*Worker
	workChan     chan Task
	resultsChan  chan TaskResult
	wg           sync.WaitGroup
	proxyManager *ProxyManager
	config       Config
	logger       Logger
	staggerDelay time.Duration
	cancel       context.CancelFunc
}

// NewScheduler creates workerCount workers. config is the template for each
// task's Session; when proxyManager is set each task picks a random proxy from it.
func NewScheduler(workerCount int, config Config, proxyManager *ProxyManager, staggerDelay time.Duration, logger Logger) *Scheduler {
	if logger == nil {
		logger = NewNopLogger()
	}

	s := &Scheduler{
		workers:      make([]*Worker, workerCount),
		workChan:     make(chan Task, workerCount*2),
		resultsChan:  make(chan TaskResult, workerCount*2),
		proxyManager: proxyManager,
		config:       config,
		logger:       logger,
		staggerDelay: staggerDelay,
	}

	for i := range s.workers {
		id := generateSessionID()
		s.workers[i] = &Worker{
			id:     id,
			logger: &prefixLogger{id: "worker " + id, base: logger},
		}
	}

	return s
}

// Start launches the workers; each task runs endpoint with args.
func (s *Scheduler) Start(ctx context.Context, endpoint string, args Args) {
	ctx, s.cancel = context.WithCancel(ctx)

	for i, worker := range s.workers {
		s.wg.Add(1)
		go s.runWorker(ctx, worker, endpoint, args)

		if s.staggerDelay > 0 && i < len(s.workers)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.staggerDelay):
			}
		}
	}
}

func (s *Scheduler) runWorker(ctx context.Context, worker *Worker, endpoint string, args Args) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-s.workChan:
			if !ok {
				return
			}

			worker.logger.Log("Processing: %s", task.Label)
			result, err := s.runTask(ctx, worker, task, endpoint, args)
			if err != nil {
				worker.logger.Log("Failed: %s: %v", task.Label, err)
			}

			select {
			case s.resultsChan <- TaskResult{Label: task.Label, Result: result, Error: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, worker *Worker, task Task, endpoint string, args Args) (*Result, error) {
	cfg := s.config
	cfg.Logger = worker.logger
	if s.proxyManager != nil {
		proxyURL, idx := s.proxyManager.Random()
		worker.logger.Log("Using proxy: %s", s.proxyManager.DisplayAt(idx))
		cfg.Proxy = proxyURL
	}

	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	if err := session.Login(ctx, task.Token, task.Method); err != nil {
		return nil, err
	}

	return session.Call(ctx, endpoint, args)
}

// Submit adds a task to the work queue.
func (s *Scheduler) Submit(task Task) {
	s.workChan <- task
}

// Results returns the results channel for reading task outcomes.
func (s *Scheduler) Results() <-chan TaskResult {
	return s.resultsChan
}

// Close shuts down the scheduler and waits for workers to finish.
func (s *Scheduler) Close() {
	close(s.workChan)
	s.wg.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	close(s.resultsChan)
}

// WorkerCount returns the number of workers.
func (s *Scheduler) WorkerCount() int {
	return len(s.workers)
}
