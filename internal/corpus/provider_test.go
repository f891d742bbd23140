package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/storage"
)

type fakeFetcher struct {
	papers []models.Paper
	err    error
	calls  int
}

func (f *fakeFetcher) Notes(_ context.Context, _ string) ([]models.Paper, error) {
	f.calls++
	return f.papers, f.err
}

func newTestProvider(t *testing.T, f Fetcher) *Provider {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "corpora.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	confs := Conferences{"NeurIPS 2024": "NeurIPS.cc/2024/Conference/-/Submission"}
	return NewProvider(store, f, confs)
}

func TestProvider_LoadFetchesOnce(t *testing.T) {
	f := &fakeFetcher{papers: []models.Paper{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}}
	p := newTestProvider(t, f)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := p.Load(ctx, "NeurIPS 2024")
		if err != nil {
			t.Fatal(err)
		}
		if c.Len() != 2 || c.Papers[1].ID != "b" {
			t.Fatalf("got %+v", c)
		}
	}
	if f.calls != 1 {
		t.Errorf("expected one remote fetch, got %d", f.calls)
	}

	cached, err := p.Cached(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cached["NeurIPS 2024"] != 2 {
		t.Errorf("Cached=%v", cached)
	}
}

func TestProvider_Errors(t *testing.T) {
	ctx := context.Background()

	p := newTestProvider(t, &fakeFetcher{})
	if _, err := p.Load(ctx, "ICML 2024"); !errors.Is(err, ErrUnknownConference) {
		t.Errorf("expected ErrUnknownConference, got %v", err)
	}
	if _, err := p.Load(ctx, "NeurIPS 2024"); !errors.Is(err, ErrEmptyFetch) {
		t.Errorf("expected ErrEmptyFetch, got %v", err)
	}

	boom := errors.New("boom")
	p = newTestProvider(t, &fakeFetcher{err: boom})
	if _, err := p.Load(ctx, "NeurIPS 2024"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestProvider_Import(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "My Papers.csv")
	if err := os.WriteFile(path, []byte("id,title\n1,One\n2,Two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Import(ctx, path); err != nil {
		t.Fatal(err)
	}
	c, err := p.Load(ctx, "my papers")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "My Papers" || c.Len() != 2 {
		t.Errorf("got %+v", c)
	}
	if err := p.Remove(ctx, "My Papers"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(ctx, "My Papers"); !errors.Is(err, ErrUnknownConference) {
		t.Errorf("removed import should be unknown, got %v", err)
	}
}
