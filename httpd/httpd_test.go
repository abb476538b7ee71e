package httpd_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/config"
	"github.com/tutorstack/tutor/httpd"
	"github.com/tutorstack/tutor/pkg/llms/guard"
)

type fakeTutor struct {
	resp      *agents.Response
	err       error
	lastQuery string
	sessionID string
	block     time.Duration
}

func (f *fakeTutor) Process(ctx context.Context, query string) (*agents.Response, error) {
	f.lastQuery = query
	f.sessionID = chatmodel.GetSessionID(ctx)
	if f.block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.block):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.SessionID = f.sessionID
	resp.Timestamp = time.Now().UTC()
	return &resp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		Port:              8080,
		RequestTimeout:    time.Second,
		MaxActiveRequests: 10,
	}
}

func Test_Query(t *testing.T) {
	tut := &fakeTutor{
		resp: &agents.Response{
			Answer:     "6 * 7 = 42",
			Subject:    agents.SubjectMath,
			ToolsUsed:  []string{"Calculator"},
			Confidence: 0.95,
		},
	}
	srv := httpd.NewServer(testConfig(), tut)

	body := `{"question": "What is 6 * 7?", "session_id": "session-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Process-Time"))

	var resp httpd.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "What is 6 * 7?", resp.Question)
	assert.Equal(t, agents.SubjectMath, resp.Subject)
	assert.Equal(t, "session-1", resp.SessionID)
	assert.Equal(t, "6 * 7 = 42", resp.Response.Answer)
	assert.Equal(t, []string{"Calculator"}, resp.Response.ToolsUsed)

	assert.Equal(t, "session-1", tut.sessionID)
}

func Test_Query_GeneratesSessionID(t *testing.T) {
	tut := &fakeTutor{
		resp: &agents.Response{Answer: "ok", Subject: agents.SubjectMath},
	}
	srv := httpd.NewServer(testConfig(), tut)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "What is 6 * 7?"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp httpd.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, tut.sessionID)
}

func Test_Query_InvalidBody(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{})

	for _, body := range []string{`not json`, `{}`, `{"question": ""}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)

		var resp httpd.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_request", resp.Error)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func Test_Query_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	srv := httpd.NewServer(cfg, &fakeTutor{block: time.Second})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "slow question"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	var resp httpd.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "timeout", resp.Error)
}

func Test_Query_RateLimited(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{err: errors.WithMessage(guard.ErrRateLimited, "model gemini")})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "What is 6 * 7?"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp httpd.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limited", resp.Error)
}

func Test_Query_InternalError(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "What is 6 * 7?"}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func Test_Health(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp httpd.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Environment)
	assert.Zero(t, resp.ActiveRequests)

	// a failed query shows up in the error counter
	qreq := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "boom"}`))
	srv.Router().ServeHTTP(httptest.NewRecorder(), qreq)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.RecentErrors)
}

func Test_Metrics(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{})

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func Test_Home(t *testing.T) {
	srv := httpd.NewServer(testConfig(), &fakeTutor{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "AI Tutor")
}
