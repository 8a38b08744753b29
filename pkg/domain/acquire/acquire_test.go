package acquire_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/acquire"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/utils/retry"
	"github.com/verdantlab/leafwise/pkg/utils/try"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0}

type searcherFunc func(ctx context.Context, keyword string, limit int) ([]string, error)

func (f searcherFunc) Search(ctx context.Context, keyword string, limit int) ([]string, error) {
	return f(ctx, keyword, limit)
}

// imageHost serves /good/* as jpeg bytes, /broken/* as 403, /junk/* as html.
func imageHost(t *testing.T) *httptest.Server {
	t.Helper()
	sv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case len(r.URL.Path) > 6 && r.URL.Path[:6] == "/good/":
			w.Write(append(append([]byte{}, jpegHeader...), r.URL.Path...))
		case len(r.URL.Path) > 8 && r.URL.Path[:8] == "/broken/":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.Write([]byte("<html>not an image</html>"))
		}
	}))
	t.Cleanup(sv.Close)
	return sv
}

func TestFetch(t *testing.T) {
	t.Run("it saves up to the target and overshoots the query", func(t *testing.T) {
		host := imageHost(t)
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		queriedLimit := 0
		searcher := searcherFunc(func(_ context.Context, keyword string, limit int) ([]string, error) {
			queriedLimit = limit
			urls := []string{}
			for i := 0; i < limit; i++ {
				urls = append(urls, fmt.Sprintf("%s/good/%d.jpg", host.URL, i))
			}
			return urls, nil
		})

		fetcher := acquire.New(searcher, store)
		saved := try.To(
			fetcher.Fetch(context.Background(), domain.NormalizeLabel("Rose Leaf"), 5),
		).OrFatal(t)

		if saved != 5 {
			t.Errorf("saved %d images, expected 5", saved)
		}
		if queriedLimit != 5+30 {
			t.Errorf("queried for %d candidates, expected target+30", queriedLimit)
		}
		// the class folder derives from the label's first token
		if count := try.To(store.Count("rose")).OrFatal(t); count != 5 {
			t.Errorf("class folder rose holds %d images, expected 5", count)
		}
	})

	t.Run("bad candidates are skipped, not fatal", func(t *testing.T) {
		host := imageHost(t)
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		searcher := searcherFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
			return []string{
				host.URL + "/broken/a.jpg",
				host.URL + "/junk/b.jpg",
				"http://127.0.0.1:1/unreachable.jpg",
				host.URL + "/good/c.jpg",
			}, nil
		})

		fetcher := acquire.New(searcher, store)
		saved := try.To(
			fetcher.Fetch(context.Background(), "neem", 3),
		).OrFatal(t)

		if saved != 1 {
			t.Errorf("saved %d images, expected 1 (one good candidate)", saved)
		}
	})

	t.Run("it retries the search and succeeds on a later attempt", func(t *testing.T) {
		host := imageHost(t)
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		calls := 0
		searcher := searcherFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
			calls += 1
			switch calls {
			case 1:
				return nil, errors.New("rate limited")
			case 2:
				return []string{}, nil // empty result counts as a failed attempt
			default:
				return []string{host.URL + "/good/a.jpg"}, nil
			}
		})

		fetcher := acquire.New(
			searcher, store,
			acquire.WithBackoff(func() retry.Backoff { return retry.Static(0) }),
		)
		saved := try.To(fetcher.Fetch(context.Background(), "rose", 1)).OrFatal(t)

		if saved != 1 {
			t.Errorf("saved %d images, expected 1", saved)
		}
		if calls != 3 {
			t.Errorf("search is called %d time(s), expected 3", calls)
		}
	})

	t.Run("it gives up after three failed search attempts", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)

		calls := 0
		searcher := searcherFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
			calls += 1
			return nil, errors.New("down")
		})

		fetcher := acquire.New(
			searcher, store,
			acquire.WithBackoff(func() retry.Backoff { return retry.Static(0) }),
		)
		if _, err := fetcher.Fetch(context.Background(), "rose", 1); err == nil {
			t.Error("Fetch succeeded with a dead image source")
		}
		if calls != 3 {
			t.Errorf("search is called %d time(s), expected 3", calls)
		}
	})

	t.Run("it rejects a non-positive target", func(t *testing.T) {
		store := try.To(dataset.New(t.TempDir())).OrFatal(t)
		fetcher := acquire.New(
			searcherFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
				return nil, nil
			}),
			store,
		)
		if _, err := fetcher.Fetch(context.Background(), "rose", 0); err == nil {
			t.Error("Fetch accepted target 0")
		}
	})
}

func TestWebSearcher(t *testing.T) {
	t.Run("it parses the image source response and caps at limit", func(t *testing.T) {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("q"); got != "rose leaf" {
				t.Errorf("unexpected query: %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"results": [
				{"image": "http://img.example/1.jpg"},
				{"image": ""},
				{"image": "http://img.example/2.png"},
				{"image": "http://img.example/3.jpg"}
			]}`)
		}))
		defer source.Close()

		searcher := acquire.NewWebSearcher(source.URL, 0)
		urls := try.To(searcher.Search(context.Background(), "rose leaf", 2)).OrFatal(t)

		if len(urls) != 2 || urls[0] != "http://img.example/1.jpg" || urls[1] != "http://img.example/2.png" {
			t.Errorf("unexpected urls: %v", urls)
		}
	})

	t.Run("a non-200 answer is an error", func(t *testing.T) {
		source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer source.Close()

		searcher := acquire.NewWebSearcher(source.URL, 0)
		if _, err := searcher.Search(context.Background(), "rose", 5); err == nil {
			t.Error("Search accepted a 502 answer")
		}
	})
}
