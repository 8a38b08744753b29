// Package registry persists the set of class labels the served model has
// been trained on. It is the single source of truth for "already trained".
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/verdantlab/leafwise/pkg/domain"
)

// Registry is a durably persisted, ordered set of trained labels.
//
// Every mutation is written to disk before it is visible in memory, so a
// reader never observes a label the registry file does not hold.
type Registry struct {
	mu     sync.Mutex
	path   string
	labels []domain.ClassLabel
}

// Load opens (or creates empty) the registry file at path.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, labels: []domain.ClassLabel{}}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var raw []string
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("registry %s is broken: %w", path, err)
	}
	for _, l := range raw {
		r.labels = append(r.labels, domain.NormalizeLabel(l))
	}
	return r, nil
}

// List returns all trained labels in registration order.
func (r *Registry) List() []domain.ClassLabel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ClassLabel{}, r.labels...)
}

// Contains reports whether name (normalized) is a trained label.
func (r *Registry) Contains(name string) bool {
	label := domain.NormalizeLabel(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index(label) != -1
}

// Add registers a label. It is idempotent: adding a label twice leaves a
// single occurrence. The label is persisted before Add returns; when
// persisting fails, the in-memory set is left unchanged and the add did
// not happen.
func (r *Registry) Add(name string) error {
	label := domain.NormalizeLabel(name)
	if label.Empty() {
		return fmt.Errorf("empty label")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(label) != -1 {
		return nil
	}

	next := append(append([]domain.ClassLabel{}, r.labels...), label)
	if err := r.persist(next); err != nil {
		return err
	}
	r.labels = next
	return nil
}

// Remove unregisters a label. It reports whether a removal actually
// occurred. As with Add, a failed write means the removal did not happen.
func (r *Registry) Remove(name string) (bool, error) {
	label := domain.NormalizeLabel(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	at := r.index(label)
	if at == -1 {
		return false, nil
	}

	next := append([]domain.ClassLabel{}, r.labels[:at]...)
	next = append(next, r.labels[at+1:]...)
	if err := r.persist(next); err != nil {
		return false, err
	}
	r.labels = next
	return true, nil
}

func (r *Registry) index(label domain.ClassLabel) int {
	for i, l := range r.labels {
		if l == label {
			return i
		}
	}
	return -1
}

// persist writes labels to a sibling temp file and renames it over the
// registry file, so the file is replaced atomically.
func (r *Registry) persist(labels []domain.ClassLabel) error {
	raw := make([]string, 0, len(labels))
	for _, l := range labels {
		raw = append(raw, l.String())
	}
	content, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to prepare registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("failed to stage registry write: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to publish registry: %w", err)
	}
	return nil
}
