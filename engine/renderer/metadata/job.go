package metadata

/**
 * @brief Describes a job to be run. Run executes on a worker goroutine, the
 * callbacks on the goroutine calling JobSystem.Update, so they may touch
 * GPU resources.
 */
type JobTask struct {
	Name string
	/** @brief The work. Required. */
	Run func() (interface{}, error)
	/** @brief Invoked with the result when Run succeeds. Optional. */
	OnComplete func(result interface{})
	/** @brief Invoked when Run fails. Optional. */
	OnFailure func(err error)
}

/** @brief The outcome of a finished job, waiting for the main thread. */
type JobResult struct {
	Task   JobTask
	Result interface{}
	Err    error
}
