// Package types defines the JSON bodies of the HTTP API.
package types

import (
	"time"

	"github.com/verdantlab/leafwise/pkg/domain"
)

// Prediction is the body of a successful classification.
type Prediction struct {
	Class      string             `json:"class"`
	Confidence float64            `json:"confidence"`
	AllProbs   map[string]float64 `json:"all_probs"`
}

func ComposePrediction(p domain.Prediction) Prediction {
	probs := map[string]float64{}
	for _, class := range p.Ranked() {
		probs[class] = p.Probability[class]
	}
	return Prediction{
		Class:      p.Class,
		Confidence: p.Confidence,
		AllProbs:   probs,
	}
}

// TrainStarted acknowledges an accepted training request.
type TrainStarted struct {
	Message string `json:"message"`
}

// TrainStatus is the live view of the current (or most recent) job.
type TrainStatus struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Progress int             `json:"progress"`
	Result   *domain.Metrics `json:"result,omitempty"`
}

func ComposeTrainStatus(job domain.TrainingJob) TrainStatus {
	return TrainStatus{
		Status:   job.Status.String(),
		Message:  job.Message,
		Progress: job.Progress,
		Result:   job.Result,
	}
}

// Labels lists every trained class.
type Labels struct {
	Labels []string `json:"labels"`
	Count  int      `json:"count"`
}

func ComposeLabels(labels []domain.ClassLabel) Labels {
	names := []string{}
	for _, l := range labels {
		names = append(names, l.String())
	}
	return Labels{Labels: names, Count: len(names)}
}

// LabelDeleted reports what a delete actually removed.
type LabelDeleted struct {
	Message       string `json:"message"`
	LabelRemoved  bool   `json:"label_removed"`
	FolderRemoved bool   `json:"folder_removed"`
}

// Upload reports stored user-contributed images.
type Upload struct {
	Success  bool     `json:"success"`
	Count    int      `json:"count"`
	Images   []string `json:"images"`
	LeafName string   `json:"leaf_name"`
}

// Preview reports a dataset acquisition run without training.
type Preview struct {
	Success  bool     `json:"success"`
	Images   []string `json:"images"`
	Count    int      `json:"count"`
	LeafName string   `json:"leaf_name"`
}

// TrainingRecord is one archived training job.
type TrainingRecord struct {
	JobID      string    `json:"job_id"`
	Label      string    `json:"label"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Accuracy   float64   `json:"accuracy"`
	Classes    int       `json:"classes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// TrainingHistory lists archived jobs, newest first.
type TrainingHistory struct {
	Jobs  []TrainingRecord `json:"jobs"`
	Count int              `json:"count"`
}

// Health is the liveness body.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Classes     int    `json:"classes"`
}
