package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestWithRequestLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)

	handler := withRequestLogging(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))

		requestID := w.Header().Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			t.Errorf("%s = %q, want a UUID", requestIDHeader, requestID)
		}
		if got := strings.Count(buf.String(), requestID); got != 2 {
			t.Errorf("request id logged %d times, want 2:\n%s", got, buf.String())
		}
		if !strings.Contains(buf.String(), `"status_code":418`) {
			t.Errorf("expected status code in log, got %s", buf.String())
		}
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		req.Header.Set(requestIDHeader, "caller-id-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get(requestIDHeader); got != "caller-id-1" {
			t.Errorf("%s = %q, want caller-id-1", requestIDHeader, got)
		}
	})
}
