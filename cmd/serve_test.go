package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wo-matcher/internal/config"
	"github.com/sells-group/wo-matcher/internal/export"
	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/matcher"
	"github.com/sells-group/wo-matcher/internal/metrics"
)

func postMatch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServe_Healthz(t *testing.T) {
	h := buildRouter(nil, testOrders(), nil, config.ServerConfig{}, 50)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["work_orders"])
}

func TestServe_Match(t *testing.T) {
	tests := []struct {
		name       string
		eng        *matcher.Engine
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			eng:        engineReplying(matchReply, nil),
			body:       `{"text": "Unit 5966: Concrete repair $450.00", "expected_count": 1}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid body",
			eng:        engineReplying(matchReply, nil),
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "empty text",
			eng:        engineReplying(matchReply, nil),
			body:       `{"text": ""}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "text is required",
		},
		{
			name:       "input rejected",
			eng:        engineReplying(matchReply, nil),
			body:       `{"text": "too short"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "input rejected",
		},
		{
			name:       "gateway unavailable",
			eng:        engineReplying("", errors.New("connection refused")),
			body:       `{"text": "Unit 5966: Concrete repair $450.00"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "not configured",
			body:       `{"text": "Unit 5966: Concrete repair $450.00"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "matcher not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := buildRouter(tt.eng, testOrders(), nil, config.ServerConfig{}, 50)
			rec := postMatch(t, h, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantError != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Contains(t, body["error"], tt.wantError)
			}
		})
	}
}

func TestServe_MatchDocument(t *testing.T) {
	h := buildRouter(engineReplying(matchReply, nil), testOrders(), nil, config.ServerConfig{}, 50)
	rec := postMatch(t, h, `{"text": "Unit 5966: Concrete repair $450.00", "expected_count": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.True(t, doc.Success)
	require.Len(t, doc.Matches, 1, "match below threshold is filtered")
	assert.Equal(t, "A5966", doc.Matches[0].WorkOrderID)
	require.NotNil(t, doc.Matches[0].WorkOrder)
	assert.Equal(t, "Unit 5966 Oak St", doc.Matches[0].WorkOrder.Location)
	assert.NotEmpty(t, doc.RunID)
}

func TestServe_MatchMinConfidenceOverride(t *testing.T) {
	h := buildRouter(engineReplying(matchReply, nil), testOrders(), nil, config.ServerConfig{}, 50)
	rec := postMatch(t, h, `{"text": "Unit 5966: Concrete repair $450.00", "min_confidence": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Matches, 2)
}

func TestServe_FailedResultBody(t *testing.T) {
	h := buildRouter(engineReplying("no json here", nil), testOrders(), nil, config.ServerConfig{}, 50)
	rec := postMatch(t, h, `{"text": "Unit 5966: Concrete repair $450.00"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.False(t, doc.Success)
	assert.NotEmpty(t, doc.Error)
	assert.Empty(t, doc.Matches)
}

func TestServe_BodyTooLarge(t *testing.T) {
	h := buildRouter(engineReplying(matchReply, nil), testOrders(), nil, config.ServerConfig{MaxBodyBytes: 16}, 50)
	rec := postMatch(t, h, `{"text": "Unit 5966: Concrete repair $450.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	eng := matcher.New(gateway.Func(func(context.Context, string) (string, error) {
		return matchReply, nil
	}), matcher.Options{Metrics: m})

	h := buildRouter(eng, testOrders(), reg, config.ServerConfig{}, 50)
	require.Equal(t, http.StatusOK, postMatch(t, h, `{"text": "Unit 5966: Concrete repair $450.00"}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "womatch_runs_total")
	assert.Contains(t, string(body), "womatch_matches_total")
}

func TestServe_NoMetricsWithoutRegistry(t *testing.T) {
	h := buildRouter(nil, nil, nil, config.ServerConfig{}, 50)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_CORS(t *testing.T) {
	h := buildRouter(nil, nil, nil, config.ServerConfig{AllowedOrigins: []string{"https://ops.example.com"}}, 50)

	req := httptest.NewRequest(http.MethodOptions, "/v1/match", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
