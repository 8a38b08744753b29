package domain

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	// No training has been requested since the process started.
	Idle JobStatus = "idle"

	// A training request has been accepted but no work has begun.
	Starting JobStatus = "starting"

	// Images for the requested label are being acquired.
	Downloading JobStatus = "downloading"

	// The train/validation split is being rebuilt from the dataset store.
	Preparing JobStatus = "preparing"

	// The external training capability is running.
	Training JobStatus = "training"

	// New weights are being promoted: model slot swap, registry update, cleanup.
	Finalizing JobStatus = "finalizing"

	// The training cycle finished and the new label is registered.
	Completed JobStatus = "completed"

	// The training cycle stopped with an error. Registry and dataset are
	// left as they were before the failing step.
	Error JobStatus = "error"
)

func (s JobStatus) String() string {
	return string(s)
}

func AsJobStatus(status string) (JobStatus, error) {
	switch status {
	case string(Idle):
		return Idle, nil
	case string(Starting):
		return Starting, nil
	case string(Downloading):
		return Downloading, nil
	case string(Preparing):
		return Preparing, nil
	case string(Training):
		return Training, nil
	case string(Finalizing):
		return Finalizing, nil
	case string(Completed):
		return Completed, nil
	case string(Error):
		return Error, nil
	default:
		return "", fmt.Errorf("'%s' is not JobStatus", status)
	}
}

// InProgress reports whether a status blocks new training requests.
// Every non-terminal status of an accepted job counts: at most one job
// is active at a time, with no window around the workflow's edges.
func (s JobStatus) InProgress() bool {
	switch s {
	case Starting, Downloading, Preparing, Training, Finalizing:
		return true
	default:
		return false
	}
}

func (s JobStatus) Terminal() bool {
	switch s {
	case Completed, Error:
		return true
	default:
		return false
	}
}

// Metrics is what the external training capability reports for a finished
// training run.
type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	TopKHit     float64 `json:"top5_accuracy"`
	Classes     int     `json:"classes"`
	TrainImages int     `json:"train_images"`
	ValImages   int     `json:"val_images"`
	Elapsed     float64 `json:"elapsed_seconds"`
}

func (m *Metrics) Equal(o *Metrics) bool {
	if m == nil || o == nil {
		return m == nil && o == nil
	}
	return *m == *o
}

// TrainingJob is the state record of the current (or most recent) training
// workflow. At most one job is active process-wide.
type TrainingJob struct {
	ID         string
	Label      ClassLabel
	Status     JobStatus
	Message    string
	Progress   int
	Result     *Metrics
	StartedAt  time.Time
	FinishedAt time.Time
}

func (j TrainingJob) Equal(o TrainingJob) bool {
	return j.ID == o.ID &&
		j.Label == o.Label &&
		j.Status == o.Status &&
		j.Message == o.Message &&
		j.Progress == o.Progress &&
		j.Result.Equal(o.Result) &&
		j.StartedAt.Equal(o.StartedAt) &&
		j.FinishedAt.Equal(o.FinishedAt)
}
