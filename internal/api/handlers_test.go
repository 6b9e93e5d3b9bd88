package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
	"github.com/maltedev/mortgage-rate-scraper/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunOne(ctx context.Context, name string) (*models.RateResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RateResult), args.Error(1)
}

func (m *MockRunner) RunMany(ctx context.Context, names []string) []models.RateResult {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.RateResult)
}

type staticSources struct {
	names []string
	err   error
}

func (s staticSources) List() ([]string, error) {
	return s.names, s.err
}

func newTestRouter(runner Runner, lister SourceLister) http.Handler {
	return NewRouter(NewHandlers(runner, lister, nil), RouterConfig{})
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(new(MockRunner), staticSources{}), http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"1.0.0"}`, rec.Body.String())
}

func TestScrapeOne(t *testing.T) {
	tests := []struct {
		name       string
		result     *models.RateResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			result:     &models.RateResult{SourceID: "chase", InterestRate: 6.5, APR: 6.7, Points: "0.5", Timestamp: "2026-10-18T00:00:00Z"},
			wantStatus: http.StatusOK,
			wantBody:   `{"source_id":"chase","interest_rate":6.5,"apr":6.7,"points":"0.5","timestamp":"2026-10-18T00:00:00Z"}`,
		},
		{
			name:       "unencodable result",
			result:     &models.RateResult{SourceID: "chase", InterestRate: math.NaN(), APR: 6.7},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"failed to encode response"}`,
		},
		{
			name: "unknown source",
			err: &workflow.StageError{Source: "chase", Stage: workflow.StageLoadConfig,
				Err: fmt.Errorf("%w: chase", sources.ErrConfigNotFound)},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "pipeline failure",
			err: &workflow.StageError{Source: "chase", Stage: workflow.StageExtract,
				Err: fmt.Errorf("%w: timeout", workflow.ErrExtraction)},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			if tt.result != nil {
				runner.On("RunOne", mock.Anything, "chase").Return(tt.result, nil)
			} else {
				runner.On("RunOne", mock.Anything, "chase").Return(nil, tt.err)
			}

			rec := do(t, newTestRouter(runner, staticSources{}), http.MethodPost, "/scrape/chase", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			} else {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
			runner.AssertExpectations(t)
		})
	}
}

func TestScrapeMany(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunMany", mock.Anything, []string{"a", "b", "c"}).Return([]models.RateResult{
		{SourceID: "a", InterestRate: 6.5, APR: 6.7},
		{SourceID: "c", InterestRate: 6.1, APR: 6.3},
	})

	rec := do(t, newTestRouter(runner, staticSources{}), http.MethodPost, "/scrape",
		[]byte(`{"sources":["a","b","c"]}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var results []models.RateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].SourceID)
	assert.Equal(t, "c", results[1].SourceID)
	runner.AssertExpectations(t)
}

func TestScrapeMany_LegacyBanksField(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunMany", mock.Anything, []string{"chase", "wellsfargo"}).Return(nil)

	rec := do(t, newTestRouter(runner, staticSources{}), http.MethodPost, "/scrape",
		[]byte(`{"sources":["chase"],"banks":["wellsfargo"]}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	runner.AssertExpectations(t)
}

func TestScrapeMany_BadBody(t *testing.T) {
	runner := new(MockRunner)

	rec := do(t, newTestRouter(runner, staticSources{}), http.MethodPost, "/scrape", []byte(`{"sources":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	runner.AssertNotCalled(t, "RunMany", mock.Anything, mock.Anything)
}

func TestScrapeMany_PanicIsRecovered(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunMany", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		panic("orchestration fault")
	})

	rec := do(t, newTestRouter(runner, staticSources{}), http.MethodPost, "/scrape", []byte(`{"sources":["a"]}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListSources(t *testing.T) {
	rec := do(t, newTestRouter(new(MockRunner), staticSources{names: []string{"bankofamerica", "chase"}}),
		http.MethodGet, "/sources", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sources":["bankofamerica","chase"]}`, rec.Body.String())

	rec = do(t, newTestRouter(new(MockRunner), staticSources{err: errors.New("permission denied")}),
		http.MethodGet, "/sources", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
