package split_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/domain/split"
	"github.com/verdantlab/leafwise/pkg/utils/cmp"
	"github.com/verdantlab/leafwise/pkg/utils/try"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestBuild(t *testing.T) {
	t.Run("it splits each class at floor(ratio*count), disjoint and covering", func(t *testing.T) {
		for _, count := range []int{1, 4, 5, 10, 13} {
			t.Run(fmt.Sprintf("with %d images", count), func(t *testing.T) {
				store := try.To(dataset.New(t.TempDir())).OrFatal(t)
				source := []string{}
				for i := 0; i < count; i++ {
					name := try.To(
						store.AddImage("rose", []byte{byte(i)}, ".jpg"),
					).OrFatal(t)
					source = append(source, name)
				}

				w := try.To(split.Build(store, t.TempDir(), 0.8)).OrFatal(t)
				defer w.Remove()

				train := listNames(t, filepath.Join(w.TrainDir(), "rose"))
				val := listNames(t, filepath.Join(w.ValDir(), "rose"))

				wantTrain := int(0.8 * float64(count))
				if len(train) != wantTrain {
					t.Errorf("train holds %d images, expected %d", len(train), wantTrain)
				}
				if len(val) != count-wantTrain {
					t.Errorf("val holds %d images, expected %d", len(val), count-wantTrain)
				}
				if !cmp.SliceContentEq(append(append([]string{}, train...), val...), source) {
					t.Errorf(
						"train ∪ val does not cover the source set: train=%v val=%v source=%v",
						train, val, source,
					)
				}
			})
		}
	})

	t.Run("it includes every class in the store, even empty ones", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		try.To(store.AddImage("rose", []byte("a"), ".jpg")).OrFatal(t)
		try.To(store.EnsureClassDir("neem")).OrFatal(t)

		w := try.To(split.Build(store, t.TempDir(), 0.8)).OrFatal(t)
		defer w.Remove()

		for _, dir := range []string{
			filepath.Join(w.TrainDir(), "rose"),
			filepath.Join(w.ValDir(), "rose"),
			filepath.Join(w.TrainDir(), "neem"),
			filepath.Join(w.ValDir(), "neem"),
		} {
			if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
				t.Errorf("workspace is missing %s", dir)
			}
		}
	})

	t.Run("it copies, leaving the store untouched", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		for i := 0; i < 5; i++ {
			try.To(store.AddImage("rose", []byte{byte(i)}, ".jpg")).OrFatal(t)
		}

		w := try.To(split.Build(store, t.TempDir(), 0.8)).OrFatal(t)
		defer w.Remove()

		if count := try.To(store.Count("rose")).OrFatal(t); count != 5 {
			t.Errorf("store lost images: %d remain", count)
		}

		// every copy is byte-identical to its source
		for _, part := range []string{w.TrainDir(), w.ValDir()} {
			classDir := filepath.Join(part, "rose")
			for _, name := range listNames(t, classDir) {
				copied := try.To(os.ReadFile(filepath.Join(classDir, name))).OrFatal(t)
				original := try.To(os.ReadFile(filepath.Join(store.Root(), "rose", name))).OrFatal(t)
				if !cmp.SliceEq(copied, original) {
					t.Errorf("%s differs from its source", name)
				}
			}
		}
	})

	t.Run("it rejects a ratio out of range", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		if _, err := split.Build(store, t.TempDir(), 1.5); err == nil {
			t.Error("Build accepted ratio 1.5")
		}
	})

	t.Run("Verify fails after a partition disappears", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		try.To(store.AddImage("rose", []byte("a"), ".jpg")).OrFatal(t)

		w := try.To(split.Build(store, t.TempDir(), 0.8)).OrFatal(t)
		defer w.Remove()

		if err := w.Verify(); err != nil {
			t.Errorf("unexpected error for a fresh workspace: %v", err)
		}
		if err := os.RemoveAll(w.ValDir()); err != nil {
			t.Fatal(err)
		}
		if err := w.Verify(); err == nil {
			t.Error("Verify passed without a val partition")
		}
	})
}

func TestPurgeStale(t *testing.T) {
	t.Run("it removes old workspaces and keeps fresh ones", func(t *testing.T) {
		root := t.TempDir()
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		try.To(store.AddImage("rose", []byte("a"), ".jpg")).OrFatal(t)

		stale := try.To(split.Build(store, root, 0.8)).OrFatal(t)
		old := time.Now().Add(-48 * time.Hour)
		if err := os.Chtimes(stale.Dir(), old, old); err != nil {
			t.Fatal(err)
		}
		fresh := try.To(split.Build(store, root, 0.8)).OrFatal(t)
		defer fresh.Remove()

		purged := try.To(split.PurgeStale(root, 24*time.Hour)).OrFatal(t)
		if purged != 1 {
			t.Errorf("purged %d workspaces, expected 1", purged)
		}
		if _, err := os.Stat(stale.Dir()); !os.IsNotExist(err) {
			t.Error("stale workspace survived the purge")
		}
		if _, err := os.Stat(fresh.Dir()); err != nil {
			t.Error("fresh workspace did not survive the purge")
		}
	})

	t.Run("a missing root purges nothing", func(t *testing.T) {
		purged := try.To(
			split.PurgeStale(filepath.Join(t.TempDir(), "nothing"), time.Hour),
		).OrFatal(t)
		if purged != 0 {
			t.Errorf("purged %d workspaces, expected 0", purged)
		}
	})
}
