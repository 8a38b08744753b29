// Package acquire turns a keyword into a batch of stored training images,
// querying an external image-search capability and downloading candidates
// one by one. Individual bad URLs are skipped, never fatal.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/utils/retry"
)

// Searcher is the external image-source capability: keyword in, candidate
// image URLs out. Each call may fail as a whole; per-URL quality is the
// caller's problem.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]string, error)
}

const (
	// extra candidates requested beyond the target, to absorb download failures.
	overshoot = 30

	// attempts against the image source before giving up.
	searchAttempts = 3

	// first retry delay; doubles per attempt.
	searchBackoff = 2 * time.Second

	// per-image download budget.
	downloadTimeout = 5 * time.Second

	// some image hosts reject clients that do not look like a browser.
	browserIdentity = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetcher drives the image source and persists what it gets into the
// dataset store.
type Fetcher struct {
	searcher Searcher
	store    *dataset.Store
	client   *http.Client
	backoff  func() retry.Backoff
}

type Option func(*Fetcher) *Fetcher

// WithBackoff replaces the search retry delay policy.
func WithBackoff(backoff func() retry.Backoff) Option {
	return func(f *Fetcher) *Fetcher {
		f.backoff = backoff
		return f
	}
}

func New(searcher Searcher, store *dataset.Store, options ...Option) *Fetcher {
	f := &Fetcher{
		searcher: searcher,
		store:    store,
		client:   &http.Client{Timeout: downloadTimeout},
		backoff:  func() retry.Backoff { return retry.Exponential(searchBackoff, 2) },
	}
	for _, opt := range options {
		f = opt(f)
	}
	return f
}

// Fetch acquires up to target images for label and stores them in the
// label's class folder. It returns how many images were actually saved,
// which may be fewer than target: candidates run out, some fail to
// download, some are not images. Partial fulfillment is not an error.
//
// The search itself is retried up to 3 times with exponential backoff;
// each candidate download gets one timed attempt and is dropped on any
// failure.
func (f *Fetcher) Fetch(ctx context.Context, label domain.ClassLabel, target int) (int, error) {
	if target <= 0 {
		return 0, fmt.Errorf("image target must be positive: %d", target)
	}

	urls, err := retry.Do(
		ctx, searchAttempts, f.backoff(),
		func() ([]string, error) {
			urls, err := f.searcher.Search(ctx, label.String(), target+overshoot)
			if err != nil {
				return nil, fmt.Errorf("image search for %q: %v: %w", label, err, retry.ErrRetry)
			}
			if len(urls) == 0 {
				return nil, fmt.Errorf("image search for %q found nothing: %w", label, retry.ErrRetry)
			}
			return urls, nil
		},
	)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, url := range urls {
		if saved >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		content, ext, err := f.download(ctx, url)
		if err != nil {
			continue // a single bad URL must never abort the batch
		}
		if _, err := f.store.AddImage(label.Folder(), content, ext); err != nil {
			return saved, err
		}
		saved += 1
	}
	return saved, nil
}

// download fetches one candidate URL and validates it is an image this
// service recognizes.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", browserIdentity)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	ext := sniffImageExt(content, url)
	if ext == "" {
		return nil, "", fmt.Errorf("%s is not a recognized image", url)
	}
	return content, ext, nil
}

// sniffImageExt inspects magic bytes first and the URL second.
func sniffImageExt(content []byte, url string) string {
	if len(content) >= 2 && content[0] == 0xFF && content[1] == 0xD8 {
		return ".jpg"
	}
	if len(content) >= 8 &&
		content[0] == 0x89 && content[1] == 0x50 && content[2] == 0x4E && content[3] == 0x47 &&
		content[4] == 0x0D && content[5] == 0x0A && content[6] == 0x1A && content[7] == 0x0A {
		return ".png"
	}

	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, ".png"):
		return ".png"
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"):
		return ".jpg"
	}
	return ""
}
