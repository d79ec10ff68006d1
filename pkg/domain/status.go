package domain

// RunStatus represents the state of a test item within a run.
type RunStatus string

const (
	// RunStatusEnqueued indicates the item is queued and waiting to start.
	RunStatusEnqueued RunStatus = "enqueued"
	// RunStatusStarted indicates the item is executing.
	RunStatusStarted RunStatus = "started"
	// RunStatusPassed indicates the PHPUnit process exited with status zero.
	RunStatusPassed RunStatus = "passed"
	// RunStatusFailed indicates a non-zero exit status.
	RunStatusFailed RunStatus = "failed"
	// RunStatusSkipped indicates the run was cancelled before the item started.
	RunStatusSkipped RunStatus = "skipped"
)
