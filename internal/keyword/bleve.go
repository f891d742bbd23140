package keyword

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/vector"
)

const (
	fieldTitle    = "title"
	fieldAbstract = "abstract"
	fieldKeywords = "keywords"
	fieldAuthors  = "authors"

	// keywordsBoost favours author-supplied keywords over abstract text.
	keywordsBoost = 1.5
	batchSize     = 500

	fingerprintKey = "papers_fingerprint"
)

// BleveIndex implements KeywordIndex using Bleve. Document ids are corpus row numbers.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so "bayes" does not match "bay".
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	for _, f := range []string{fieldTitle, fieldAbstract, fieldKeywords, fieldAuthors} {
		docMapping.AddFieldMappingsAt(f, textFieldMapping)
	}
	im.AddDocumentMapping("paper", docMapping)
	im.DefaultType = "paper"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex opens the index at path, or creates an empty one when none exists.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Fingerprint identifies the indexed fields of papers in order. It changes whenever a
// title, abstract, keyword list, or author list changes.
func Fingerprint(papers []models.Paper) string {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = strings.Join([]string{p.Title, p.Abstract, p.Keywords, p.Authors}, "\x00")
	}
	fp := vector.FingerprintTexts(texts)
	return hex.EncodeToString(fp[:])
}

// Open returns an index at path holding exactly papers. An existing index is reused only
// when it was fully built from papers with the same Fingerprint; otherwise it is recreated.
func Open(ctx context.Context, path string, papers []models.Paper) (*BleveIndex, error) {
	fp := Fingerprint(papers)
	if _, err := os.Stat(path); err == nil {
		if idx, err := NewBleveIndex(path); err == nil {
			if stored, err := idx.Fingerprint(); err == nil && stored == fp {
				return idx, nil
			}
			_ = idx.Close()
		}
	}
	if err := Remove(path); err != nil {
		return nil, err
	}
	idx, err := NewBleveIndex(path)
	if err != nil {
		return nil, err
	}
	if err := idx.IndexPapers(ctx, papers); err != nil {
		_ = idx.Close()
		return nil, err
	}
	// Written last, so an interrupted build is never mistaken for a complete one.
	if err := idx.index.SetInternal([]byte(fingerprintKey), []byte(fp)); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("store keyword index fingerprint: %w", err)
	}
	return idx, nil
}

// Fingerprint returns the fingerprint stored by Open, or "" for an index Open did not
// finish.
func (b *BleveIndex) Fingerprint() (string, error) {
	v, err := b.index.GetInternal([]byte(fingerprintKey))
	if err != nil {
		return "", fmt.Errorf("read keyword index fingerprint: %w", err)
	}
	return string(v), nil
}

// Remove deletes the index directory at path. A missing index is not an error.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove keyword index: %w", err)
	}
	return nil
}

// IndexPapers indexes papers in batches, using each paper's row as its document id.
func (b *BleveIndex) IndexPapers(ctx context.Context, papers []models.Paper) error {
	batch := b.index.NewBatch()
	for i, p := range papers {
		doc := map[string]any{
			fieldTitle:    p.Title,
			fieldAbstract: p.Abstract,
			fieldKeywords: p.Keywords,
			fieldAuthors:  p.Authors,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			return fmt.Errorf("index row %d: %w", i, err)
		}
		if batch.Size() >= batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("Bleve batch failed: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search runs a match query over every field and returns up to limit rows, best first.
// Equal scores are ordered by row.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if limit <= 0 {
		return []Result{}, nil
	}
	titleBoost := 1.0
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 1 {
			titleBoost = opts.TitleBoost
		}
		if opts.FuzzyEnabled {
			fuzziness = 1
			if opts.Fuzziness > 0 {
				fuzziness = min(opts.Fuzziness, 2)
			}
		}
	}

	fieldQuery := func(field string, boost float64) blevequery.Query {
		q := bleve.NewMatchQuery(query)
		q.SetField(field)
		q.SetFuzziness(fuzziness)
		if boost != 1 {
			q.SetBoost(boost)
		}
		return q
	}
	q := bleve.NewDisjunctionQuery(
		fieldQuery(fieldTitle, titleBoost),
		fieldQuery(fieldAbstract, 1),
		fieldQuery(fieldKeywords, keywordsBoost),
		fieldQuery(fieldAuthors, 1),
	)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		row, err := strconv.Atoi(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", hit.ID, err)
		}
		out = append(out, Result{Row: row, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Row < out[j].Row
	})
	return out, nil
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
