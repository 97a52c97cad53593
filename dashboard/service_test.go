package dashboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/dashboard/scraper"
	"github.com/seo-optimizer/dashboard/store"
	"github.com/seo-optimizer/dashboard/suggest"
	"github.com/seo-optimizer/dashboard/textmetrics"
)

type fakeScraper struct {
	calls int
	err   error
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*scraper.PageMetadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.PageMetadata{
		URL:            url,
		Title:          "Widgets",
		Description:    "Widgets for every workshop",
		H1:             "Widgets",
		H2s:            []string{"Steel", "Brass"},
		H3s:            []string{},
		H4s:            []string{},
		Text:           "seo seo seo test page page",
		TextFragments:  []string{"Widgets are great."},
		Links:          []string{url + "/about", "https://other.test/"},
		Images:         map[string]string{url + "/logo.png": ""},
		LoadTime:       800 * time.Millisecond,
		MobileFriendly: true,
		PageSize:       4096,
	}, nil
}

type failingGenerator struct{}

func (failingGenerator) Suggest(context.Context, suggest.Request) (*suggest.Suggestions, error) {
	return nil, fmt.Errorf("%w: status 503", suggest.ErrProvider)
}

type failingInsertStore struct {
	*store.Store
}

func (failingInsertStore) Insert(context.Context, *store.Record) error {
	return errors.New("disk full")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "dash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestService(t *testing.T, scr Scraper, gen suggest.Generator, st Store, requireCompany bool) *Service {
	t.Helper()
	return NewService(scr, gen, suggest.NewEnricher(nil, nil), st, Options{RequireCompany: requireCompany})
}

func TestAnalyze(t *testing.T) {
	st := newTestStore(t)
	svc := newTestService(t, &fakeScraper{}, suggest.NewHeuristicGenerator(), st, false)
	ctx := context.Background()

	state := NewState()
	next, rec, err := svc.Analyze(ctx, state, " https://acme.test ", "Acme")
	require.NoError(t, err)

	assert.Equal(t, 0, state.Len(), "input state must not change")
	require.Equal(t, 1, next.Len())
	assert.Equal(t, rec.ID, next.Records()[0].ID)

	assert.Equal(t, "https://acme.test", rec.URL)
	assert.Equal(t, "Acme", rec.Company)
	assert.Equal(t, "Widgets", rec.CurrentTitle)
	assert.NotEmpty(t, rec.SuggestedTitle)
	assert.Equal(t, []string{"Steel", "Brass"}, rec.CurrentH2s)
	assert.Len(t, rec.SuggestedH2s, 2)
	assert.Equal(t, []string{"https://acme.test/about"}, rec.InternalLinks)
	assert.Equal(t, []string{"https://other.test/"}, rec.ExternalLinks)
	assert.Equal(t, 0.8, rec.PageSpeed)
	assert.False(t, rec.PageSpeedSimulated)
	assert.Equal(t, 6, rec.ContentLength)

	stored, err := st.Select(ctx, store.Filter{URL: "https://acme.test"})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAnalyzeStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		url       string
		company   string
		scraper   *fakeScraper
		generator suggest.Generator
		insertErr bool
		require   bool
		stage     Stage
		wantErr   error
		scrapes   int
	}{
		{"empty url", "", "Acme", &fakeScraper{}, suggest.NewHeuristicGenerator(), false, false, StageValidate, ErrInvalidURL, 0},
		{"relative url", "/about", "Acme", &fakeScraper{}, suggest.NewHeuristicGenerator(), false, false, StageValidate, ErrInvalidURL, 0},
		{"ftp url", "ftp://acme.test", "Acme", &fakeScraper{}, suggest.NewHeuristicGenerator(), false, false, StageValidate, ErrInvalidURL, 0},
		{"missing company", "https://acme.test", "", &fakeScraper{}, suggest.NewHeuristicGenerator(), false, true, StageValidate, ErrCompanyRequired, 0},
		{"scrape fails", "https://acme.test", "Acme", &fakeScraper{err: scraper.ErrNoMetadata}, suggest.NewHeuristicGenerator(), false, false, StageScrape, scraper.ErrNoMetadata, 1},
		{"suggest fails", "https://acme.test", "Acme", &fakeScraper{}, failingGenerator{}, false, false, StageSuggest, suggest.ErrProvider, 1},
		{"persist fails", "https://acme.test", "Acme", &fakeScraper{}, suggest.NewHeuristicGenerator(), true, false, StagePersist, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newTestStore(t)
			var st Store = base
			if tt.insertErr {
				st = failingInsertStore{base}
			}
			svc := newTestService(t, tt.scraper, tt.generator, st, tt.require)

			state := NewState()
			next, rec, err := svc.Analyze(ctx, state, tt.url, tt.company)
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.Equal(t, tt.stage, StageOf(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.scrapes, tt.scraper.calls)
			assert.Equal(t, 0, next.Len())

			records, err := base.Select(ctx, store.Filter{})
			require.NoError(t, err)
			assert.Empty(t, records, "failed analyses are never persisted")
		})
	}
}

func seedService(t *testing.T) (*Service, *store.Store, State) {
	t.Helper()
	st := newTestStore(t)
	svc := newTestService(t, &fakeScraper{}, suggest.NewHeuristicGenerator(), st, false)
	ctx := context.Background()

	state := NewState()
	var err error
	for _, in := range []struct{ url, company string }{
		{"https://acme.test", "Acme"},
		{"https://acme.test/shop", "Acme"},
		{"https://globex.test", "Globex"},
		{"https://solo.test", ""},
	} {
		state, _, err = svc.Analyze(ctx, state, in.url, in.company)
		require.NoError(t, err)
	}
	return svc, st, state
}

func TestArchiveCompany(t *testing.T) {
	svc, _, state := seedService(t)
	ctx := context.Background()

	next, n, err := svc.ArchiveCompany(ctx, state, "Acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 4, state.Len())
	assert.Equal(t, 2, next.Len())
	for _, r := range next.Records() {
		assert.NotEqual(t, "Acme", r.Company)
	}

	reloaded, err := svc.Load(ctx, NewState(), store.Filter{Archived: store.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	// archived records are still exported
	name, content, err := svc.ExportCompany(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "acme.csv", name)
	assert.Contains(t, content, "https://acme.test/shop")
}

func TestDeleteOperations(t *testing.T) {
	svc, st, state := seedService(t)
	ctx := context.Background()

	next, n, err := svc.DeleteURL(ctx, state, "https://globex.test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 3, next.Len())

	_, _, err = svc.DeleteURL(ctx, next, " ")
	assert.Equal(t, StageValidate, StageOf(err))

	next, n, err = svc.DeleteCompany(ctx, next, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, next.Len())

	remaining, err := st.Select(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestCompaniesAndExportWithoutCompany(t *testing.T) {
	svc, _, _ := seedService(t)
	ctx := context.Background()

	summaries, err := svc.Companies(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)

	name, content, err := svc.ExportCompany(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "no_company.csv", name)
	assert.Contains(t, content, "https://solo.test")
}

func TestKeywordDensity(t *testing.T) {
	svc := newTestService(t, &fakeScraper{}, suggest.NewHeuristicGenerator(), newTestStore(t), false)

	view, err := svc.KeywordDensity(context.Background(), "https://acme.test", textmetrics.DensityOptions{MinLength: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, view.TotalWords)
	require.Len(t, view.Keywords, 3)
	assert.Equal(t, "seo", view.Keywords[0].Keyword)
	assert.Equal(t, 50.0, view.Keywords[0].Density)
	assert.Equal(t, textmetrics.DensityTooHigh, view.Keywords[0].Level)

	_, err = svc.KeywordDensity(context.Background(), "nope", textmetrics.DensityOptions{})
	assert.Equal(t, StageValidate, StageOf(err))
}

func TestRecommendationsAndPerformance(t *testing.T) {
	svc, _, state := seedService(t)
	ctx := context.Background()

	id := state.Records()[0].ID
	view, err := svc.Recommendations(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, view.Record.ID)
	assert.Contains(t, view.Recommendations, "Add alt text to all images")
	assert.Greater(t, view.Score, 0.0)

	_, err = svc.Recommendations(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rows, err := svc.Performance(ctx, store.String("Acme"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "good", rows[0].LoadTimeSeverity)
	assert.True(t, rows[0].MobileFriendly)

	all, err := svc.Performance(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStateMatches(t *testing.T) {
	r := store.Record{URL: "u", Company: "Acme", Archived: true}
	assert.True(t, matches(store.Filter{}, r))
	assert.True(t, matches(store.Filter{Company: store.String("Acme")}, r))
	assert.False(t, matches(store.Filter{Company: store.String("")}, r))
	assert.False(t, matches(store.Filter{Archived: store.Bool(false)}, r))
}

func TestPrepareThenCommit(t *testing.T) {
	st := newTestStore(t)
	svc := newTestService(t, &fakeScraper{}, suggest.NewHeuristicGenerator(), st, false)
	ctx := context.Background()

	prepared, err := svc.Prepare(ctx, "https://acme.test/new", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.test/new", prepared.URL())

	stored, err := st.Select(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, stored, "prepare must not write")

	// the view may have moved on while the page was scraped
	state, _, err := svc.Analyze(ctx, NewState(), "https://globex.test", "Globex")
	require.NoError(t, err)

	next, rec, err := svc.Commit(ctx, state, prepared)
	require.NoError(t, err)
	require.Equal(t, 2, next.Len())
	assert.Equal(t, rec.ID, next.Records()[0].ID)
	assert.Equal(t, "https://globex.test", next.Records()[1].URL)

	_, _, err = svc.Commit(ctx, state, nil)
	assert.Equal(t, StagePersist, StageOf(err))

	_, err = svc.Prepare(ctx, "ftp://acme.test", "")
	assert.Equal(t, StageValidate, StageOf(err))
}
