// Package yolo adapts the python YOLO classification toolchain as the
// external vision-model capability. Both primitives shell out to a script
// and read a single JSON document from its stdout.
package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/verdantlab/leafwise/pkg/domain"
)

// Config locates the python toolchain.
type Config struct {
	// Python is the interpreter binary, e.g. "python3".
	Python string `yaml:"python"`

	// TrainScript reads --data <splitDir> --weights <base> --out <dir> and
	// prints {"weights": ..., "metrics": {...}}.
	TrainScript string `yaml:"trainScript"`

	// PredictScript reads --weights <w> --image <path> and prints
	// {"class": ..., "confidence": ..., "all_probs": {...}}.
	PredictScript string `yaml:"predictScript"`
}

// Trainer runs the training script. Output weights land under OutDir.
type Trainer struct {
	config Config
	outDir string
}

func NewTrainer(config Config, outDir string) *Trainer {
	return &Trainer{config: config, outDir: outDir}
}

func (t *Trainer) Train(ctx context.Context, splitDir string, baseWeights string) (string, domain.Metrics, error) {
	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return "", domain.Metrics{}, fmt.Errorf("failed to prepare weights dir: %w", err)
	}

	out, err := runScript(ctx, t.config.Python, t.config.TrainScript,
		"--data", splitDir,
		"--weights", baseWeights,
		"--out", t.outDir,
	)
	if err != nil {
		return "", domain.Metrics{}, fmt.Errorf("training failed: %w", err)
	}

	var result struct {
		Weights string         `json:"weights"`
		Metrics domain.Metrics `json:"metrics"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return "", domain.Metrics{}, fmt.Errorf("training reported a broken result: %w", err)
	}
	if result.Weights == "" {
		return "", domain.Metrics{}, fmt.Errorf("training reported no weights artifact")
	}
	return result.Weights, result.Metrics, nil
}

// Model is a classifier bound to one weights artifact.
type Model struct {
	config  Config
	weights string
}

// Load binds a classifier to the weights artifact at path. The artifact
// must exist; inference never loads lazily.
func Load(config Config, path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("weights artifact %s: %w", path, err)
	}
	return &Model{config: config, weights: path}, nil
}

func (m *Model) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	tmp, err := os.CreateTemp("", "leafwise-predict-*.img")
	if err != nil {
		return domain.Prediction{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return domain.Prediction{}, err
	}
	if err := tmp.Close(); err != nil {
		return domain.Prediction{}, err
	}

	out, err := runScript(ctx, m.config.Python, m.config.PredictScript,
		"--weights", m.weights,
		"--image", tmp.Name(),
	)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("inference failed: %w", err)
	}

	var result struct {
		Class      string             `json:"class"`
		Confidence float64            `json:"confidence"`
		AllProbs   map[string]float64 `json:"all_probs"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return domain.Prediction{}, fmt.Errorf("inference reported a broken result: %w", err)
	}
	return domain.Prediction{
		Class:       result.Class,
		Confidence:  result.Confidence,
		Probability: result.AllProbs,
	}, nil
}

func runScript(ctx context.Context, python, script string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, python, append([]string{script}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := bytes.TrimSpace(stderr.Bytes())
		if len(detail) == 0 {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", err, detail)
	}
	return bytes.TrimSpace(stdout.Bytes()), nil
}
