package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/reviewpulse/internal/api"
	"github.com/kiranshivaraju/reviewpulse/internal/api/handler"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/kiranshivaraju/reviewpulse/internal/cache"
	"github.com/kiranshivaraju/reviewpulse/internal/classifier/mock"
	"github.com/kiranshivaraju/reviewpulse/internal/config"
	"github.com/kiranshivaraju/reviewpulse/internal/events"
	"github.com/kiranshivaraju/reviewpulse/internal/ingest"
	"github.com/kiranshivaraju/reviewpulse/internal/insights"
	"github.com/kiranshivaraju/reviewpulse/internal/store"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory store ---

type memStore struct {
	mu      sync.Mutex
	keys    []*models.APIKey
	reviews []*models.Review
}

func (s *memStore) Ping(_ context.Context) error { return nil }

func (s *memStore) CreateReview(_ context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, r)
	return nil
}

func (s *memStore) CountBySentiment(_ context.Context, ownerID uuid.UUID) (models.SentimentCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.SentimentCounts
	for _, r := range s.reviews {
		if r.OwnerID != ownerID {
			continue
		}
		switch r.Sentiment {
		case models.SentimentPositive:
			c.Positive++
		case models.SentimentNegative:
			c.Negative++
		case models.SentimentNeutral:
			c.Neutral++
		}
	}
	return c, nil
}

func (s *memStore) ListRecentReviews(_ context.Context, ownerID uuid.UUID, limit int) ([]*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Review{}
	for _, r := range s.reviews {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (s *memStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

var _ store.Store = (*memStore)(nil)

// --- fixtures ---

const (
	ownerKey  = "rp_owner_key_0123456789abcdef"
	readerKey = "rp_readr_key_0123456789abcdef"
)

var testOwner = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")

func addKey(t *testing.T, s *memStore, raw string, scopes ...string) {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.CreateAPIKey(context.Background(), &models.APIKey{
		ID:        uuid.New(),
		OwnerID:   testOwner,
		Name:      raw[:mw.KeyPrefixLen],
		KeyHash:   string(h),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		Scopes:    scopes,
	}))
}

type testServer struct {
	server *httptest.Server
	store  *memStore
	redis  *miniredis.Miniredis
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	ms := &memStore{}
	addKey(t, ms, ownerKey, mw.ScopeIngest, mw.ScopeRead)
	addKey(t, ms, readerKey, mw.ScopeRead)

	cls := mock.NewScriptedClassifier(map[string]models.ClassificationResult{
		"Great product": {Sentiment: models.SentimentPositive, Confidence: 0.95},
		"Loved it":      {Sentiment: models.SentimentPositive, Confidence: 0.9},
		"Awful support": {Sentiment: models.SentimentNegative, Confidence: 0.85},
		"It was okay":   {Sentiment: models.SentimentNeutral, Confidence: 0.6},
	})

	ingestSvc := ingest.NewService(cls, ms, rc, events.NopPublisher{},
		config.IngestConfig{Concurrency: 2, MaxUploadBytes: 1 << 20}, nil)
	engine := insights.NewEngine(ms, rc, time.Minute, nil)

	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(ms),
		RateLimit: mw.NewRateLimit(rc, rateLimit),

		HealthHandler:        handler.NewHealthHandler(ms, rc, handler.PingerFunc(cls.Ready)),
		UploadHandler:        handler.NewUploadHandler(ingestSvc, 1<<20),
		AnalyzeTextHandler:   handler.NewAnalyzeTextHandler(ingestSvc),
		RecentReviewsHandler: handler.NewRecentReviewsHandler(engine),
		ReviewStatsHandler:   handler.NewReviewStatsHandler(engine),
		InsightsHandler:      handler.NewInsightsHandler(engine),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{server: srv, store: ms, redis: mr}
}

func (ts *testServer) do(t *testing.T, method, path, key string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) upload(t *testing.T, key, filename, contentType string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	part, err := mpw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/v1/reviews/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func parseData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func parseErrCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Error.Code
}

// --- routing ---

func TestRouter_HealthIsPublic(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodGet, "/api/v1/health", "", nil)

	var got struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	parseData(t, resp, &got)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.Services["database"])
	assert.Equal(t, "ok", got.Services["cache"])
	assert.Equal(t, "ok", got.Services["classifier"])
}

func TestRouter_MetricsIsPublic(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_ProtectedEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t, 60)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/reviews/upload"},
		{http.MethodPost, "/api/v1/reviews/analyze-text"},
		{http.MethodGet, "/api/v1/reviews/recent"},
		{http.MethodGet, "/api/v1/reviews/stats"},
		{http.MethodGet, "/api/v1/insights"},
	}
	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			resp := ts.do(t, ep.method, ep.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "INVALID_TOKEN", parseErrCode(t, resp))
		})
	}
}

func TestRouter_ReadOnlyKeyCannotIngest(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodPost, "/api/v1/reviews/analyze-text", readerKey, map[string]string{"text": "Loved it"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/insights", readerKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RateLimited(t *testing.T) {
	ts := newTestServer(t, 2)

	for range 2 {
		resp := ts.do(t, http.MethodGet, "/api/v1/reviews/stats", ownerKey, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.do(t, http.MethodGet, "/api/v1/reviews/stats", ownerKey, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", parseErrCode(t, resp))
}

func TestRouter_NotFound(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodGet, "/api/v1/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_NilHandlerIsNotImplemented(t *testing.T) {
	ms := &memStore{}
	addKey(t, ms, ownerKey, mw.ScopeIngest, mw.ScopeRead)
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)

	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(ms),
		RateLimit: mw.NewRateLimit(rc, 60),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil)
	req.Header.Set("Authorization", "Bearer "+ownerKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

// --- end to end ---

func TestFlow_UploadThenInsights(t *testing.T) {
	ts := newTestServer(t, 60)

	// Prime the cache so the upload has something to invalidate.
	resp := ts.do(t, http.MethodGet, "/api/v1/insights", ownerKey, nil)
	var empty models.InsightsReport
	parseData(t, resp, &empty)
	assert.Equal(t, 0, empty.TotalReviews)
	assert.Equal(t, models.SentimentNeutral, empty.OverallSentiment)
	require.True(t, ts.redis.Exists(cache.ReportKey(testOwner)))

	csv := []byte("id,review\n1,Great product\n2,Awful support\n3,Mystery text\n4,Loved it\n")
	resp = ts.upload(t, ownerKey, "reviews.csv", "text/csv", csv)

	var batch struct {
		Message string                        `json:"message"`
		Results []models.ClassificationResult `json:"results"`
		Summary ingest.Summary                `json:"summary"`
		Errors  []ingest.ItemError            `json:"errors"`
	}
	parseData(t, resp, &batch)
	assert.Equal(t, "Successfully analyzed 4 reviews", batch.Message)
	require.Len(t, batch.Results, 4)
	assert.Equal(t, "Great product", batch.Results[0].Text)
	assert.Equal(t, models.SentimentNegative, batch.Results[1].Sentiment)
	assert.True(t, batch.Results[2].Degraded, "unscripted text falls back locally")
	assert.Equal(t, 4, batch.Summary.Persisted)
	assert.Equal(t, 1, batch.Summary.Degraded)
	assert.Empty(t, batch.Errors)

	assert.False(t, ts.redis.Exists(cache.ReportKey(testOwner)), "upload invalidates the cached report")

	resp = ts.do(t, http.MethodGet, "/api/v1/reviews/stats", ownerKey, nil)
	var stats models.ReviewStats
	parseData(t, resp, &stats)
	assert.Equal(t, models.ReviewStats{TotalReviews: 4, PositiveReviews: 2, NegativeReviews: 1, NeutralReviews: 1}, stats)

	resp = ts.do(t, http.MethodGet, "/api/v1/insights", ownerKey, nil)
	var report models.InsightsReport
	parseData(t, resp, &report)
	assert.Equal(t, 4, report.TotalReviews)
	assert.Equal(t, 50, report.PositiveRate)
	assert.Equal(t, 25, report.NegativeRate)
	assert.Equal(t, 25, report.NeutralRate)
	assert.Equal(t, models.SentimentNeutral, report.OverallSentiment)
}

func TestFlow_AnalyzeTextThenRecent(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodPost, "/api/v1/reviews/analyze-text", ownerKey, map[string]string{"text": "  It was okay  "})
	var res models.ClassificationResult
	parseData(t, resp, &res)
	assert.Equal(t, "It was okay", res.Text)
	assert.Equal(t, models.SentimentNeutral, res.Sentiment)
	assert.False(t, res.Degraded)

	resp = ts.do(t, http.MethodGet, "/api/v1/reviews/recent?limit=5", ownerKey, nil)
	var recent []models.Review
	parseData(t, resp, &recent)
	require.Len(t, recent, 1)
	assert.Equal(t, "It was okay", recent[0].Text)
	assert.Equal(t, models.SourceTextInput, recent[0].Source)
}

func TestFlow_AnalyzeTextEmpty(t *testing.T) {
	ts := newTestServer(t, 60)

	resp := ts.do(t, http.MethodPost, "/api/v1/reviews/analyze-text", ownerKey, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", parseErrCode(t, resp))
	assert.Empty(t, ts.store.reviews)
}

func TestFlow_UploadErrors(t *testing.T) {
	ts := newTestServer(t, 60)

	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		status      int
		code        string
	}{
		{"wrong type", "notes.txt", "text/plain", []byte("hello"), http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"header only", "reviews.csv", "text/csv", []byte("review\n"), http.StatusBadRequest, "NO_REVIEWS_FOUND"},
		{"corrupt xlsx", "reviews.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK\x03\x04garbage"), http.StatusBadRequest, "CORRUPT_FILE"},
		{"too large", "big.csv", "text/csv", bytes.Repeat([]byte("a"), (1<<20)+10), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.upload(t, ownerKey, tt.filename, tt.contentType, tt.content)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, parseErrCode(t, resp))
		})
	}
}
