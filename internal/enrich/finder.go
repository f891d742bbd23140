package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/catalogger/internal/models"
)

const (
	DefaultPDFTimeout        = 10 * time.Second
	DefaultRequestsPerSecond = 1.0
	// maxPDFBytes bounds how much of a PDF is downloaded.
	maxPDFBytes = 32 << 20
)

// ProfileResolver maps author ids to emails (see openreview.Client.Profiles).
type ProfileResolver interface {
	Profiles(ctx context.Context, ids []string) (map[string]string, error)
}

// EmailFinder downloads paper PDFs and matches the emails on their first page to authors.
type EmailFinder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	profiles   ProfileResolver
	logger     *zap.Logger
}

// Option configures an EmailFinder.
type Option func(*EmailFinder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *EmailFinder) { f.httpClient = hc }
}

// WithTimeout sets the per-PDF download timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *EmailFinder) {
		if d > 0 {
			f.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps PDF downloads per second. Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(f *EmailFinder) {
		if rps <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithProfiles sets the fallback resolver for authors with no email in the PDF.
func WithProfiles(p ProfileResolver) Option {
	return func(f *EmailFinder) { f.profiles = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *EmailFinder) { f.logger = l }
}

// NewEmailFinder creates a finder with the given options.
func NewEmailFinder(opts ...Option) *EmailFinder {
	f := &EmailFinder{
		httpClient: &http.Client{Timeout: DefaultPDFTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FirstPageText downloads the PDF at pdfURL and returns the plain text of its first page.
func (f *EmailFinder) FirstPageText(ctx context.Context, pdfURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", pdfURL, resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return "", fmt.Errorf("download %s: %w", pdfURL, err)
	}
	return firstPage(content)
}

func firstPage(content []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	if r.NumPage() < 1 {
		return "", errors.New("PDF has no pages")
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// EmailsFromPDF returns the emails on the first page of the PDF at pdfURL.
func (f *EmailFinder) EmailsFromPDF(ctx context.Context, pdfURL string) ([]string, error) {
	text, err := f.FirstPageText(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	return FindEmails(text), nil
}

// Enrich fills author emails and social links. Failures for one paper are logged and leave
// that paper's authors without emails; they never fail the whole call.
func (f *EmailFinder) Enrich(ctx context.Context, recs []models.Recommendation, corpus *models.Corpus) []models.Recommendation {
	out := make([]models.Recommendation, len(recs))
	for i, rec := range recs {
		rec.Authors = append([]models.Author(nil), rec.Authors...)
		var emails []string
		if rec.URL != "" {
			found, err := f.EmailsFromPDF(ctx, rec.URL)
			if err != nil {
				f.logger.Warn("Could not read paper PDF", zap.String("url", rec.URL), zap.Error(err))
			}
			emails = found
		}
		profileEmails := f.profileEmails(ctx, rec, corpus)
		for j := range rec.Authors {
			a := &rec.Authors[j]
			if a.Email == "" {
				a.Email = MatchAuthorEmail(a.Name, emails)
			}
			if a.Email == "" {
				a.Email = profileEmails[strings.ToLower(a.Name)]
			}
			if a.SocialURL == "" {
				a.SocialURL = SocialSearchURL(a.Name)
			}
		}
		out[i] = rec
	}
	return out
}

// profileEmails resolves the paper's author ids and keys the emails by lowercased author
// name, pairing names and ids by position.
func (f *EmailFinder) profileEmails(ctx context.Context, rec models.Recommendation, corpus *models.Corpus) map[string]string {
	if f.profiles == nil || rec.Row < 0 || rec.Row >= corpus.Len() {
		return nil
	}
	paper := corpus.Papers[rec.Row]
	names, ids := paper.AuthorList(), paper.AuthorIDList()
	if len(ids) == 0 {
		return nil
	}
	resolved, err := f.profiles.Profiles(ctx, ids)
	if err != nil {
		f.logger.Warn("Could not resolve author profiles", zap.String("paper", paper.ID), zap.Error(err))
	}
	byName := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(ids) && resolved[ids[i]] != "" {
			byName[strings.ToLower(name)] = resolved[ids[i]]
		}
	}
	return byName
}
