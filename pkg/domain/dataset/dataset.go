// Package dataset is the durable per-class image archive. It is append-only
// during normal operation; a class folder disappears only through explicit
// label deletion.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// recognized image extensions, lower-cased.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImageFile reports whether name has a recognized image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Store is the on-disk image archive: one sub-directory per class folder,
// holding that class's raw images.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare dataset store at %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// EnsureClassDir creates the folder for a class if absent and returns its path.
func (s *Store) EnsureClassDir(folder string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("empty class folder name")
	}
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create class folder %s: %w", folder, err)
	}
	return dir, nil
}

// Classes lists the class folders currently in the store.
func (s *Store) Classes() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset store: %w", err)
	}
	classes := []string{}
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	return classes, nil
}

// ListImages returns the image file names (recognized extensions only) of a
// class folder. A missing folder lists as empty, not as an error.
func (s *Store) ListImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, folder))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to scan class folder %s: %w", folder, err)
	}

	images := []string{}
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		images = append(images, e.Name())
	}
	return images, nil
}

// Count returns how many images the class folder holds.
func (s *Store) Count(folder string) (int, error) {
	images, err := s.ListImages(folder)
	if err != nil {
		return 0, err
	}
	return len(images), nil
}

// AddImage writes an image into a class folder under a collision-resistant
// name; it never overwrites an existing file. It returns the file name.
func (s *Store) AddImage(folder string, content []byte, ext string) (string, error) {
	dir, err := s.EnsureClassDir(folder)
	if err != nil {
		return "", err
	}

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !imageExtensions[ext] {
		ext = ".jpg"
	}

	name := fmt.Sprintf(
		"%s_%d_%s%s",
		folder, time.Now().UnixNano(), uuid.NewString()[:8], ext,
	)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file %s: %w", name, err)
	}
	return name, nil
}

// RemoveClassDir deletes a class folder and everything in it. It reports
// whether the folder existed. Only explicit label deletion calls this.
func (s *Store) RemoveClassDir(folder string) (bool, error) {
	if folder == "" || folder != filepath.Base(folder) {
		return false, fmt.Errorf("invalid class folder name: %s", folder)
	}
	dir := filepath.Join(s.root, folder)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("failed to remove class folder %s: %w", folder, err)
	}
	return true, nil
}

// Resolve maps a store-relative path ("rose/rose_001.jpg") onto a filesystem
// path, rejecting anything that escapes the store root.
func (s *Store) Resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid image path: %s", rel)
	}
	return filepath.Join(s.root, cleaned), nil
}
