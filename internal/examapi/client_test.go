package examapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-session/internal/model"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, signedToken(t, time.Now().Add(time.Hour)), zerolog.Nop()), srv
}

const catalogJSON = `{
	"test": {"id": 7, "name": "Mock Test", "description": "d", "duration_minutes": 60},
	"sections": [
		{"id": 1, "name": "Physics", "questions": [
			{"id": 11, "question": "q1", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}},
			{"id": 12, "question": "q2", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}}
		]}
	]
}`

func TestFetchCatalog(t *testing.T) {
	var gotAuth, gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("test_id")
		assert.Equal(t, "/questions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	})

	catalog, err := client.FetchCatalog(context.Background(), 7)
	require.NoError(t, err)

	assert.Contains(t, gotAuth, "Bearer ")
	assert.Equal(t, "7", gotQuery)
	assert.Equal(t, 7, catalog.TestID)
	assert.Equal(t, "Mock Test", catalog.Title)
	assert.Equal(t, 60, catalog.DurationMinutes)
	require.Len(t, catalog.Sections, 1)

	// Normalized: display ids and section back-references filled in.
	q := catalog.Sections[0].Questions[1]
	assert.Equal(t, 2, q.QuestionID)
	assert.Equal(t, 1, q.SectionID)
	assert.Equal(t, "Physics", q.SectionName)
	assert.Equal(t, "q2", q.Text)
}

func TestFetchCatalog_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		wantMsg string
	}{
		{"NotFound", http.StatusNotFound, `{"error": "Test not found"}`, ErrNotFound, "Test not found"},
		{"Unauthorized", http.StatusUnauthorized, `{"error": "Invalid token"}`, ErrUnauthorized, "Invalid token"},
		{"Forbidden", http.StatusForbidden, ``, ErrUnauthorized, ""},
		{"BadRequest", http.StatusBadRequest, `{"error": {"code": "VALIDATION_ERROR", "message": "test_id is required"}}`, ErrValidation, "test_id is required"},
		{"ServerError", http.StatusInternalServerError, `oops`, ErrServer, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.FetchCatalog(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestFetchCatalog_MalformedBodyIsServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sections": [`))
	})

	_, err := client.FetchCatalog(context.Background(), 1)
	assert.ErrorIs(t, err, ErrServer)
}

func TestSubmit(t *testing.T) {
	var got model.SubmissionRequest
	var gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": "Exam submitted successfully", "submission_id": 42, "score": {"points": 1, "total": 2, "percentage": 50}}`))
	})

	req := model.SubmissionRequest{
		UserID:          "u1",
		TestID:          7,
		Answers:         model.AnswerMap{"11": "A"},
		MarkedForReview: []int{12},
	}
	result, err := client.Submit(context.Background(), req, "key-1")
	require.NoError(t, err)

	assert.Equal(t, req, got)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, 42, result.SubmissionID)
	assert.Equal(t, model.Score{Points: 1, Total: 2, Percentage: 50}, result.Score)
}

func TestSubmit_ValidationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "answers and test_id are required"}`))
	})

	_, err := client.Submit(context.Background(), model.SubmissionRequest{TestID: 1}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpiredTokenFailsWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, signedToken(t, time.Now().Add(-time.Minute)), zerolog.Nop())

	_, err := client.FetchCatalog(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, calls.Load())
}

func TestTransportFailureIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, signedToken(t, time.Now().Add(time.Hour)), zerolog.Nop())
	_, err := client.Submit(context.Background(), model.SubmissionRequest{TestID: 1}, "")
	assert.ErrorIs(t, err, ErrServer)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, TokenExpired("", now))
	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Second)), now))
	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Minute)), now))

	// Opaque tokens are judged by the server.
	assert.False(t, TokenExpired("opaque-session-token", now))
}

func TestWithClock(t *testing.T) {
	future := time.Now().Add(2 * time.Hour)
	client := NewClient("http://unused", signedToken(t, time.Now().Add(time.Hour)), zerolog.Nop(),
		WithClock(func() time.Time { return future }))

	_, err := client.FetchCatalog(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
