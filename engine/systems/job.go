package systems

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrJobSystemStopped    = errors.New("job system is shut down")
	ErrJobWithoutRun       = errors.New("job has no Run function")
)

/** @brief The job system configuration. */
type JobSystemConfig struct {
	/** @brief The number of worker goroutines. */
	WorkerCount int
	/** @brief The number of jobs that may wait for a worker. */
	QueueSize int
	/** @brief The number of finished jobs that may wait for Update. */
	ResultCapacity int
}

/**
 * @brief Runs jobs on a pool of worker goroutines. Completion callbacks are
 * held back and invoked by Update, on the goroutine driving the frame.
 */
type JobSystem struct {
	jobQueue chan metadata.JobTask
	wg       sync.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	results *containers.RingQueue[metadata.JobResult]
	stopped bool

	log *log.Logger
}

func NewJobSystem(config JobSystemConfig) (*JobSystem, error) {
	if config.WorkerCount <= 0 {
		return nil, ErrNoWorkers
	}
	if config.QueueSize < 0 {
		return nil, ErrNegativeChannelSize
	}
	if config.ResultCapacity <= 0 {
		config.ResultCapacity = 256
	}

	js := &JobSystem{
		jobQueue: make(chan metadata.JobTask, config.QueueSize),
		results:  containers.NewRingQueue[metadata.JobResult](config.ResultCapacity),
		log:      core.Logger().With("system", "jobs"),
	}
	js.cond = sync.NewCond(&js.mu)

	for i := 0; i < config.WorkerCount; i++ {
		js.wg.Add(1)
		go js.worker()
	}
	js.log.Debug("started", "workers", config.WorkerCount)
	return js, nil
}

func (js *JobSystem) worker() {
	defer js.wg.Done()
	for job := range js.jobQueue {
		res := metadata.JobResult{Task: job}
		res.Result, res.Err = run(job)
		if res.Err != nil {
			js.log.Error("job failed", "job", job.Name, "err", res.Err)
		}

		js.mu.Lock()
		// wait for Update to make room rather than dropping the result
		for js.results.IsFull() {
			js.cond.Wait()
		}
		if err := js.results.Enqueue(res); err != nil {
			js.log.Warn("result dropped", "job", job.Name, "err", err)
		}
		js.mu.Unlock()
	}
}

func run(job metadata.JobTask) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run()
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.Run == nil {
		return fmt.Errorf("%w: %s", ErrJobWithoutRun, jt.Name)
	}
	js.mu.Lock()
	stopped := js.stopped
	js.mu.Unlock()
	if stopped {
		return ErrJobSystemStopped
	}
	js.jobQueue <- jt
	return nil
}

/**
 * @brief Invokes the callbacks of finished jobs. Should happen once an update
 * cycle. Returns the number of jobs completed.
 */
func (js *JobSystem) Update() int {
	js.mu.Lock()
	var finished []metadata.JobResult
	for !js.results.IsEmpty() {
		res, _ := js.results.Dequeue()
		finished = append(finished, res)
	}
	js.cond.Broadcast()
	js.mu.Unlock()

	for _, res := range finished {
		if res.Err != nil {
			if res.Task.OnFailure != nil {
				res.Task.OnFailure(res.Err)
			}
			continue
		}
		if res.Task.OnComplete != nil {
			res.Task.OnComplete(res.Result)
		}
	}
	return len(finished)
}

/**
 * @brief Shuts the job system down. Queued jobs still run; their callbacks
 * are invoked by a final Update.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.stopped {
		js.mu.Unlock()
		return nil
	}
	js.stopped = true
	js.mu.Unlock()

	close(js.jobQueue)
	done := make(chan struct{})
	go func() {
		js.wg.Wait()
		close(done)
	}()
	// keep draining so workers blocked on a full result queue can finish
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-done:
			js.Update()
			return nil
		case <-tick.C:
			js.Update()
		}
	}
}
