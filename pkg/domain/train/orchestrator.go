// Package train coordinates the incremental retraining workflow:
// acquisition, split, training, promotion, registry update and cleanup.
// It owns the process-wide TrainingJob state record.
package train

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/domain/model"
	"github.com/verdantlab/leafwise/pkg/domain/registry"
	"github.com/verdantlab/leafwise/pkg/domain/split"
)

// ErrAlreadyTrained rejects a request for a label the registry holds.
var ErrAlreadyTrained = errors.New("label has already been trained")

// ErrBusy rejects a request while another training job is in progress.
// Requests are refused, not queued.
var ErrBusy = errors.New("a training job is already in progress")

// Acquirer is the image-acquisition step seen from the workflow.
type Acquirer interface {
	Fetch(ctx context.Context, label domain.ClassLabel, target int) (int, error)
}

// ClassifierLoader builds a servable classifier from a weights artifact.
// It runs once per successful training, right before the model-slot swap.
type ClassifierLoader func(weightsPath string) (model.Classifier, error)

// Recorder observes training jobs reaching a terminal state. Recording
// failures are logged, never propagated into the workflow.
type Recorder interface {
	RecordTrainingJob(ctx context.Context, job domain.TrainingJob) error
}

// Config tunes one orchestrator.
type Config struct {
	// WorkDir hosts the ephemeral split workspaces.
	WorkDir string

	// SplitRatio is the train share of each class, e.g. 0.8.
	SplitRatio float64

	// MinImages is the class size at which downloading is skipped: a prior
	// preview or upload already satisfied the data requirement.
	MinImages int

	// FetchTarget is how many images acquisition aims for per new label.
	FetchTarget int

	// BaseWeights is the non-fine-tuned starting point for every training
	// run. Training always restarts from it, over the whole dataset store,
	// so earlier classes are re-learned instead of forgotten.
	BaseWeights string
}

// Orchestrator serializes training workflows: at most one job is active at
// a time, and its steps run in strict sequence on one background
// goroutine.
type Orchestrator struct {
	mu  sync.Mutex
	job domain.TrainingJob

	registry  *registry.Registry
	store     *dataset.Store
	acquirer  Acquirer
	trainer   model.Trainer
	slot      *model.Slot
	load      ClassifierLoader
	recorders []Recorder
	config    Config
	logger    *log.Logger
}

func New(
	reg *registry.Registry,
	store *dataset.Store,
	acquirer Acquirer,
	trainer model.Trainer,
	slot *model.Slot,
	load ClassifierLoader,
	config Config,
	logger *log.Logger,
	recorders ...Recorder,
) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		job:       domain.TrainingJob{Status: domain.Idle, Message: "No training started yet"},
		registry:  reg,
		store:     store,
		acquirer:  acquirer,
		trainer:   trainer,
		slot:      slot,
		load:      load,
		recorders: recorders,
		config:    config,
		logger:    logger,
	}
}

// Status returns a snapshot of the current (or most recent) job.
func (o *Orchestrator) Status() domain.TrainingJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job
}

// Start accepts a training request for name and launches the workflow on a
// background goroutine. It returns as soon as the job is accepted.
//
// It returns ErrAlreadyTrained when the registry already holds the label,
// and ErrBusy while a job is downloading, preparing or training.
func (o *Orchestrator) Start(name string) error {
	label := domain.NormalizeLabel(name)
	if label.Empty() {
		return fmt.Errorf("empty label name")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.registry.Contains(label.String()) {
		return fmt.Errorf("%w: %s", ErrAlreadyTrained, label)
	}
	if o.job.Status.InProgress() {
		return fmt.Errorf("%w (training %s)", ErrBusy, o.job.Label)
	}

	o.job = domain.TrainingJob{
		ID:        uuid.NewString(),
		Label:     label,
		Status:    domain.Starting,
		Message:   fmt.Sprintf("Preparing training for %s", label),
		Progress:  5,
		StartedAt: time.Now(),
	}

	go o.run(o.job.ID, label)
	return nil
}

// run is the whole workflow of one accepted job. Every failure lands in
// the job record as the error state; nothing escapes to a request thread.
func (o *Orchestrator) run(jobID string, label domain.ClassLabel) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, jobID, fmt.Errorf("training workflow panicked: %v", r))
		}
	}()

	// acquisition, skipped when the class already holds enough images
	count, err := o.store.Count(label.Folder())
	if err != nil {
		o.fail(ctx, jobID, err)
		return
	}
	if count < o.config.MinImages {
		o.update(jobID, domain.Downloading, fmt.Sprintf("Downloading images for %s", label), 15)

		saved, err := o.acquirer.Fetch(ctx, label, o.config.FetchTarget)
		if err != nil {
			o.fail(ctx, jobID, fmt.Errorf("image acquisition: %w", err))
			return
		}
		o.logger.Printf("acquired %d image(s) for %s", saved, label)
		if saved == 0 && count == 0 {
			o.fail(ctx, jobID, fmt.Errorf("no images could be acquired for %s", label))
			return
		}
	} else {
		o.logger.Printf("class %s already holds %d image(s), skipping download", label.Folder(), count)
	}

	// split over the entire store, so every known class is retrained
	o.update(jobID, domain.Preparing, "Building train/validation split", 40)
	workspace, err := split.Build(o.store, o.config.WorkDir, o.config.SplitRatio)
	if err != nil {
		o.fail(ctx, jobID, fmt.Errorf("split build: %w", err))
		return
	}
	defer func() {
		if err := workspace.Remove(); err != nil {
			o.logger.Printf("failed to purge split workspace %s: %v", workspace.Dir(), err)
		}
	}()

	if err := workspace.Verify(); err != nil {
		o.fail(ctx, jobID, err)
		return
	}

	// hand off to the external training capability
	o.update(jobID, domain.Training, fmt.Sprintf("Training model with %s", label), 60)
	weights, metrics, err := o.trainer.Train(ctx, workspace.Dir(), o.config.BaseWeights)
	if err != nil {
		o.fail(ctx, jobID, err)
		return
	}

	// promote: the previous model serves until this swap
	o.update(jobID, domain.Finalizing, "Promoting new model", 90)
	classifier, err := o.load(weights)
	if err != nil {
		o.fail(ctx, jobID, fmt.Errorf("loading trained weights: %w", err))
		return
	}
	o.slot.Swap(classifier, weights)

	if err := o.registry.Add(label.String()); err != nil {
		o.fail(ctx, jobID, fmt.Errorf("registering label: %w", err))
		return
	}

	o.complete(ctx, jobID, metrics)
}

func (o *Orchestrator) update(jobID string, status domain.JobStatus, message string, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job.ID != jobID {
		return
	}
	o.job.Status = status
	o.job.Message = message
	o.job.Progress = progress
}

func (o *Orchestrator) complete(ctx context.Context, jobID string, metrics domain.Metrics) {
	o.mu.Lock()
	if o.job.ID != jobID {
		o.mu.Unlock()
		return
	}
	o.job.Status = domain.Completed
	o.job.Message = fmt.Sprintf("Training completed for %s", o.job.Label)
	o.job.Progress = 100
	o.job.Result = &metrics
	o.job.FinishedAt = time.Now()
	snapshot := o.job
	o.mu.Unlock()

	o.logger.Printf("training completed for %s (accuracy %.3f)", snapshot.Label, metrics.Accuracy)
	o.record(ctx, snapshot)
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) {
	o.mu.Lock()
	if o.job.ID != jobID {
		o.mu.Unlock()
		return
	}
	o.job.Status = domain.Error
	o.job.Message = cause.Error()
	o.job.FinishedAt = time.Now()
	snapshot := o.job
	o.mu.Unlock()

	o.logger.Printf("training failed for %s: %v", snapshot.Label, cause)
	o.record(ctx, snapshot)
}

func (o *Orchestrator) record(ctx context.Context, job domain.TrainingJob) {
	for _, r := range o.recorders {
		if err := r.RecordTrainingJob(ctx, job); err != nil {
			o.logger.Printf("failed to record training job %s: %v", job.ID, err)
		}
	}
}
