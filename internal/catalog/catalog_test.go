package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/catalogger/internal/corpus"
	"github.com/hyperjump/catalogger/internal/embedding"
	"github.com/hyperjump/catalogger/internal/indexer"
	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/search"
	"github.com/hyperjump/catalogger/internal/storage"
	"github.com/hyperjump/catalogger/internal/vector"
)

type fakeFetcher struct {
	mu     sync.Mutex
	papers []models.Paper
	calls  int
}

func (f *fakeFetcher) Notes(_ context.Context, _ string) ([]models.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.papers, nil
}

type fakeReranker struct {
	got       []models.ScoredPaper
	interests string
}

func (r *fakeReranker) Rerank(_ context.Context, interests string, candidates []models.ScoredPaper) ([]models.Recommendation, error) {
	r.got = candidates
	r.interests = interests
	top := candidates[0]
	return []models.Recommendation{{ID: top.ID, Title: top.Title, Row: top.Row}}, nil
}

type fakeEnricher struct{ calls int }

func (e *fakeEnricher) Enrich(_ context.Context, recs []models.Recommendation, _ *models.Corpus) []models.Recommendation {
	e.calls++
	for i := range recs {
		recs[i].Authors = []models.Author{{Name: "Ann Lee", Email: "ann@x.org"}}
	}
	return recs
}

var papers = []models.Paper{
	{ID: "p0", Title: "Robot grasping", Abstract: "sim-to-real transfer for robot grasping"},
	{ID: "p1", Title: "Protein folding", Abstract: "diffusion models for protein structure"},
	{ID: "p2", Title: "Language agents", Abstract: "large language models that use tools"},
}

type fixture struct {
	cat     *Catalog
	fetcher *fakeFetcher
	store   *vector.FileStore
	dir     string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, "corpora.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store, err := vector.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeFetcher{papers: papers}
	provider := corpus.NewProvider(db, f, corpus.Conferences{"NeurIPS 2024": "NeurIPS.cc/2024/Conference/-/Submission"})
	emb := embedding.NewHashingEmbedder(64)
	pipeline := indexer.NewPipeline(emb, store, indexer.WithDefaultBatchSize(2))
	opts = append([]Option{WithKeywordDir(filepath.Join(dir, "keyword"))}, opts...)
	cat := New(provider, pipeline, store, search.NewEngine(emb), opts...)
	t.Cleanup(func() { _ = cat.Close() })
	return &fixture{cat: cat, fetcher: f, store: store, dir: dir}
}

func TestCatalog_OpenBuildsOnceAndReports(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var fractions []float64
	idx, err := fx.cat.Open(ctx, "NeurIPS 2024", func(f float64, _ string) { fractions = append(fractions, f) })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if idx.Identity != "neurips_2024" || idx.Matrix.Rows() != len(papers) || idx.Keyword == nil {
		t.Fatalf("unexpected index %+v", idx)
	}
	if len(fractions) != 2 || fractions[1] != 1 {
		t.Errorf("progress = %v, want two batches ending at 1", fractions)
	}
	if ok, _ := fx.store.Exists("neurips_2024"); !ok {
		t.Error("artifact not persisted")
	}

	again, err := fx.cat.Open(ctx, "neurips 2024", nil)
	if err != nil {
		t.Fatal(err)
	}
	if again != idx {
		t.Error("expected the already open index")
	}
	if fx.fetcher.calls != 1 {
		t.Errorf("fetches = %d, want 1", fx.fetcher.calls)
	}
	if got := fx.cat.Loaded(); len(got) != 1 || got[0] != "neurips_2024" {
		t.Errorf("Loaded = %v", got)
	}
}

func TestCatalog_ConcurrentOpens(t *testing.T) {
	fx := newFixture(t)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fx.cat.Open(context.Background(), "NeurIPS 2024", nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Open: %v", err)
	}
	if _, err := fx.cat.Get("NeurIPS 2024"); err != nil {
		t.Error(err)
	}
}

func TestCatalog_Search(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for _, mode := range []models.SearchMode{models.ModeSemantic, models.ModeKeyword, models.ModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			resp, err := fx.cat.Search(ctx, &models.SearchQuery{Corpus: "NeurIPS 2024", Query: "robot grasping", Mode: mode, TopK: 2})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(resp.Results) == 0 || resp.Results[0].ID != "p0" {
				t.Errorf("results = %+v", resp.Results)
			}
		})
	}

	_, err := fx.cat.Search(ctx, &models.SearchQuery{Corpus: "NeurIPS 2024"})
	if !errors.Is(err, search.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
	_, err = fx.cat.Search(ctx, &models.SearchQuery{Corpus: "ICML 1999", Query: "x"})
	if !errors.Is(err, corpus.ErrUnknownConference) {
		t.Errorf("err = %v, want ErrUnknownConference", err)
	}
}

func TestCatalog_Recommend(t *testing.T) {
	rr := &fakeReranker{}
	en := &fakeEnricher{}
	fx := newFixture(t, WithReranker(rr), WithEnricher(en), WithMaxCandidates(2))
	ctx := context.Background()

	prev := []models.Recommendation{{ID: "old", Title: "Earlier pick", Row: -1}}
	resp, err := fx.cat.Recommend(ctx, &models.RecommendRequest{
		Corpus: "NeurIPS 2024", Interests: "robot grasping", Previous: prev, Enrich: true,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rr.got) != 2 {
		t.Errorf("re-ranker saw %d candidates, want 2", len(rr.got))
	}
	recs := resp.Recommendations
	if len(recs) != 2 || recs[0].ID != "old" || recs[1].ID != "p0" {
		t.Fatalf("recommendations = %+v", recs)
	}
	if en.calls != 1 || recs[1].Authors[0].Email != "ann@x.org" {
		t.Error("enricher not applied")
	}
	if resp.Corpus != "NeurIPS 2024" {
		t.Errorf("corpus = %q", resp.Corpus)
	}

	if _, err := fx.cat.Recommend(ctx, &models.RecommendRequest{Corpus: "NeurIPS 2024", Interests: "  "}); !errors.Is(err, ErrEmptyInterests) {
		t.Errorf("err = %v, want ErrEmptyInterests", err)
	}
}

func TestCatalog_RecommendExtend(t *testing.T) {
	rr := &fakeReranker{}
	fx := newFixture(t, WithReranker(rr))

	resp, err := fx.cat.Recommend(context.Background(), &models.RecommendRequest{
		Corpus: "NeurIPS 2024", Interests: "robot grasping", Extend: []string{"tactile sensing", "robot grasping", " "},
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := "robot grasping, tactile sensing"
	if rr.interests != want || resp.Interests != want {
		t.Errorf("interests = %q / %q, want %q", rr.interests, resp.Interests, want)
	}

	// Keywords alone are enough to recommend from.
	if _, err := fx.cat.Recommend(context.Background(), &models.RecommendRequest{
		Corpus: "NeurIPS 2024", Extend: []string{"diffusion"},
	}); err != nil {
		t.Errorf("Recommend with keywords only: %v", err)
	}
}

func TestCatalog_RecommendWithoutReranker(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.cat.Recommend(context.Background(), &models.RecommendRequest{Corpus: "NeurIPS 2024", Interests: "robots"})
	if !errors.Is(err, ErrNoReranker) {
		t.Errorf("err = %v, want ErrNoReranker", err)
	}
}

func TestCatalog_ImportAndForget(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(fx.dir, "my papers.csv")
	csv := "id,title,abstract\nq1,Graph networks,message passing\nq2,Bandits,regret bounds\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	idx, err := fx.cat.Import(ctx, path, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if idx.Identity != "my_papers" || idx.Corpus.Len() != 2 {
		t.Fatalf("unexpected index %+v", idx)
	}
	fx.cat.Release(idx)

	if err := fx.cat.Forget("my papers"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := fx.cat.Get("my papers"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("err = %v, want ErrNotLoaded", err)
	}
	if ok, _ := fx.store.Exists("my_papers"); ok {
		t.Error("artifact should be removed")
	}
	if _, err := os.Stat(filepath.Join(fx.dir, "keyword", "my_papers")); !os.IsNotExist(err) {
		t.Error("keyword index should be removed")
	}

	// The cached corpus survives Forget.
	reopened, err := fx.cat.Open(ctx, "my papers", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	fx.cat.Release(reopened)
	if err := fx.cat.Delete(ctx, "my papers"); err != nil {
		t.Fatal(err)
	}
	cached, err := fx.cat.Provider().Cached(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cached["my papers"]; ok {
		t.Error("Delete should drop the cached corpus")
	}
}

func TestCatalog_ReimportKeepsHeldIndexUsable(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	engine := search.NewEngine(embedding.NewHashingEmbedder(64))
	path := filepath.Join(fx.dir, "workshop.csv")
	write := func(keywords string) {
		t.Helper()
		csv := "id,title,abstract,keywords\n" +
			"w1,Robot grasping,sim-to-real transfer," + keywords + "\n" +
			"w2,Protein folding,diffusion for structures,biology\n"
		if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("manipulation")
	first, err := fx.cat.Import(ctx, path, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	fx.cat.Release(first)
	held, err := fx.cat.Get("workshop")
	if err != nil {
		t.Fatal(err)
	}

	// Same titles and abstracts, so the embeddings are a cache hit; only keywords change.
	write("zebrafish")
	second, err := fx.cat.Import(ctx, path, nil)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	defer fx.cat.Release(second)

	old, err := engine.Keyword(ctx, held, "manipulation", 5)
	if err != nil {
		t.Fatalf("held index should keep searching after re-import: %v", err)
	}
	if len(old) != 1 || old[0].ID != "w1" {
		t.Errorf("held index results = %+v", old)
	}

	fresh, err := fx.cat.Search(ctx, &models.SearchQuery{Corpus: "workshop", Query: "zebrafish", Mode: models.ModeKeyword, TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Results) != 1 || fresh.Results[0].ID != "w1" {
		t.Errorf("edited keywords not searchable: %+v", fresh.Results)
	}

	heldKeyword := held.Keyword.(*keyword.Shared)
	fx.cat.Release(held)
	if !heldKeyword.Closed() {
		t.Error("replaced keyword index should close after its last holder releases it")
	}
	if _, err := os.Stat(heldKeyword.Path()); !os.IsNotExist(err) {
		t.Errorf("replaced keyword index should be removed, stat err=%v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(fx.dir, "keyword", "workshop"))
	if len(entries) != 1 {
		t.Errorf("keyword generations on disk = %d, want 1", len(entries))
	}
}

func TestCatalog_UnchangedReimportReusesKeywordIndex(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(fx.dir, "workshop.csv")
	if err := os.WriteFile(path, []byte("id,title,abstract\nw1,Robot grasping,sim-to-real\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := fx.cat.Import(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fx.cat.Release(first)
	second, err := fx.cat.Import(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fx.cat.Release(second)
	if first.Keyword != second.Keyword {
		t.Error("identical corpus should keep the open keyword index")
	}
	if first.Keyword.(*keyword.Shared).Closed() {
		t.Error("keyword index closed although it is still published")
	}
}
