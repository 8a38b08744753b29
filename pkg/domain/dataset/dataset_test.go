package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/utils/cmp"
	"github.com/verdantlab/leafwise/pkg/utils/try"
)

func TestStore(t *testing.T) {
	t.Run("AddImage keeps every write under a fresh name", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		names := map[string]bool{}
		for i := 0; i < 10; i++ {
			name := try.To(store.AddImage("rose", []byte{0xFF, 0xD8, byte(i)}, ".jpg")).OrFatal(t)
			if names[name] {
				t.Fatalf("file name %s is reused", name)
			}
			names[name] = true
		}

		if count := try.To(store.Count("rose")).OrFatal(t); count != 10 {
			t.Errorf("unexpected image count: %d", count)
		}
	})

	t.Run("AddImage falls back to .jpg for unknown extensions", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		name := try.To(store.AddImage("rose", []byte("x"), ".exe")).OrFatal(t)
		if filepath.Ext(name) != ".jpg" {
			t.Errorf("unexpected extension: %s", name)
		}
	})

	t.Run("ListImages filters to recognized image extensions", func(t *testing.T) {
		root := t.TempDir()
		store := try.To(dataset.New(root)).OrFatal(t)
		dir := try.To(store.EnsureClassDir("neem")).OrFatal(t)

		for _, f := range []string{"a.jpg", "b.JPEG", "c.png", "notes.txt", "model.pt"} {
			if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}
		}

		actual := try.To(store.ListImages("neem")).OrFatal(t)
		expected := []string{"a.jpg", "b.JPEG", "c.png"}
		if !cmp.SliceContentEq(actual, expected) {
			t.Errorf("unexpected images: %v (expected: %v)", actual, expected)
		}
	})

	t.Run("ListImages of a missing folder is empty, not an error", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		images := try.To(store.ListImages("nothing")).OrFatal(t)
		if len(images) != 0 {
			t.Errorf("unexpected images: %v", images)
		}
	})

	t.Run("Classes lists folders only", func(t *testing.T) {
		root := t.TempDir()
		store := try.To(dataset.New(root)).OrFatal(t)
		try.To(store.EnsureClassDir("rose")).OrFatal(t)
		try.To(store.EnsureClassDir("neem")).OrFatal(t)
		if err := os.WriteFile(filepath.Join(root, "stray.jpg"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		actual := try.To(store.Classes()).OrFatal(t)
		if !cmp.SliceContentEq(actual, []string{"rose", "neem"}) {
			t.Errorf("unexpected classes: %v", actual)
		}
	})

	t.Run("RemoveClassDir reports whether the folder existed", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		try.To(store.AddImage("rose", []byte("x"), ".jpg")).OrFatal(t)

		if removed := try.To(store.RemoveClassDir("rose")).OrFatal(t); !removed {
			t.Error("RemoveClassDir(rose) = false for an existing folder")
		}
		if removed := try.To(store.RemoveClassDir("rose")).OrFatal(t); removed {
			t.Error("RemoveClassDir(rose) = true for a removed folder")
		}
	})

	t.Run("RemoveClassDir rejects path-like names", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		if _, err := store.RemoveClassDir("../elsewhere"); err == nil {
			t.Error("RemoveClassDir accepted a traversal")
		}
	})

	t.Run("Resolve refuses to escape the store root", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		if _, err := store.Resolve("rose/rose_001.jpg"); err != nil {
			t.Errorf("unexpected error for a well-formed path: %v", err)
		}
		for _, bad := range []string{"../secrets", "rose/../../etc/passwd", "/etc/passwd", "."} {
			if _, err := store.Resolve(bad); err == nil {
				t.Errorf("Resolve accepted %s", bad)
			}
		}
	})
}
