package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/chatmodel"
	"github.com/tutorstack/tutor/pkg/llms/guard"
)

var validate = validator.New()

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Question  string `json:"question" validate:"required,min=1,max=4000"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the body of a successful POST /api/query.
type QueryResponse struct {
	Question  string           `json:"question"`
	Subject   agents.Subject   `json:"subject_identified"`
	Response  *agents.Response `json:"response"`
	SessionID string           `json:"session_id"`
	Timestamp string           `json:"timestamp"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Environment    string `json:"environment,omitempty"`
	ActiveRequests int64  `json:"active_requests"`
	RecentTimeouts int64  `json:"recent_timeouts"`
	RecentErrors   int64  `json:"recent_errors"`
	Timestamp      string `json:"timestamp"`
}

// requestTracker keeps counters for the health endpoint.
type requestTracker struct {
	active   atomic.Int64
	timeouts atomic.Int64
	errors   atomic.Int64
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON.")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "The question field is required and must not exceed 4000 characters.")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = chatmodel.NewSessionID()
	}

	ctx := chatmodel.WithChatContext(r.Context(), chatmodel.NewChatContext(sessionID, nil))
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	s.tracker.active.Add(1)
	defer s.tracker.active.Add(-1)

	resp, err := s.tutor.Process(ctx, req.Question)
	if err != nil {
		s.writeQueryError(ctx, w, err)
		return
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "query_processed",
		"subject", resp.Subject,
		"tools_used", resp.ToolsUsed,
	)

	writeJSON(w, http.StatusOK, &QueryResponse{
		Question:  req.Question,
		Subject:   resp.Subject,
		Response:  resp,
		SessionID: sessionID,
		Timestamp: resp.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.ContextKV(ctx, xlog.ERROR,
		"status", "query_failed",
		"err", err.Error(),
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.tracker.timeouts.Add(1)
		writeError(w, http.StatusGatewayTimeout, "timeout", "The request took too long to process. Please try again.")
	case errors.Is(err, guard.ErrRateLimited), errors.Is(err, guard.ErrCircuitOpen):
		s.tracker.errors.Add(1)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "I'm currently experiencing high demand. Please try again in a minute.")
	default:
		s.tracker.errors.Add(1)
		writeError(w, http.StatusInternalServerError, "internal_error", "An error occurred while processing your question. Please try again.")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := s.tracker.active.Load()
	resp := &HealthResponse{
		Status:         "healthy",
		Environment:    s.environment,
		ActiveRequests: active,
		RecentTimeouts: s.tracker.timeouts.Load(),
		RecentErrors:   s.tracker.errors.Load(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if active > int64(s.maxActiveRequests) {
		resp.Status = "overloaded"
		resp.Environment = ""
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &ErrorResponse{
		Error:      code,
		Message:    message,
		StatusCode: status,
	})
}
