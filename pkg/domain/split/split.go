// Package split builds the ephemeral train/validation workspace a training
// cycle feeds to the external training capability.
package split

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verdantlab/leafwise/pkg/domain/dataset"
)

const (
	TrainDirName = "train"
	ValDirName   = "val"
)

// Workspace is one train/validation partition of the dataset store.
// It lives for a single training cycle.
type Workspace struct {
	dir string
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) TrainDir() string {
	return filepath.Join(w.dir, TrainDirName)
}

func (w *Workspace) ValDir() string {
	return filepath.Join(w.dir, ValDirName)
}

// Verify checks the workspace holds both partitions.
func (w *Workspace) Verify() error {
	for _, dir := range []string{w.TrainDir(), w.ValDir()} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			return fmt.Errorf("split workspace is missing %s", filepath.Base(dir))
		}
	}
	return nil
}

// Remove deletes the whole workspace.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.dir)
}

// Build partitions every class in the store into a fresh workspace under
// root. For each class: shuffle its images, send the first
// floor(ratio*count) to train and the rest to validation. Images are
// copied, never moved; the store itself is untouched. Classes with no (or
// few) images still get their folders, possibly empty.
//
// The shuffle is deliberately unseeded: each retraining reconsiders the
// whole store, and reproducibility of one particular split buys nothing.
func Build(store *dataset.Store, root string, ratio float64) (*Workspace, error) {
	if ratio < 0 || 1 < ratio {
		return nil, fmt.Errorf("split ratio out of range: %f", ratio)
	}

	dir, err := os.MkdirTemp(root, workspacePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create split workspace: %w", err)
	}
	w := &Workspace{dir: dir}

	classes, err := store.Classes()
	if err != nil {
		w.Remove()
		return nil, err
	}

	for _, class := range classes {
		images, err := store.ListImages(class)
		if err != nil {
			w.Remove()
			return nil, err
		}

		rand.Shuffle(len(images), func(i, j int) {
			images[i], images[j] = images[j], images[i]
		})
		at := int(ratio * float64(len(images)))

		for _, part := range []struct {
			dir    string
			images []string
		}{
			{filepath.Join(w.TrainDir(), class), images[:at]},
			{filepath.Join(w.ValDir(), class), images[at:]},
		} {
			if err := os.MkdirAll(part.dir, 0o755); err != nil {
				w.Remove()
				return nil, fmt.Errorf("failed to lay out workspace: %w", err)
			}
			for _, img := range part.images {
				src, err := store.Resolve(filepath.Join(class, img))
				if err != nil {
					w.Remove()
					return nil, err
				}
				if err := copyFile(src, filepath.Join(part.dir, img)); err != nil {
					w.Remove()
					return nil, err
				}
			}
		}
	}

	return w, nil
}

const workspacePrefix = "split-"

// PurgeStale removes workspaces under root older than maxAge. Workspaces of
// crashed or interrupted cycles are otherwise never reclaimed.
func PurgeStale(root string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	purged := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return purged, err
		}
		purged += 1
	}
	return purged, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	// a short write can surface only at close; a truncated image must
	// not slip into the split
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
