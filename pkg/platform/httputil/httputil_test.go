package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "taskflow/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes field", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Validation("title", "title is required"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "validation_error" || body["field"] != "title" {
			t.Fatalf("unexpected body: %v", body)
		}
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("raw"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeMissingCredential: http.StatusUnauthorized,
		dErrors.CodeExpiredCredential: http.StatusUnauthorized,
		dErrors.CodeForbidden:         http.StatusForbidden,
		dErrors.CodeNotFound:          http.StatusNotFound,
		dErrors.CodeConflict:          http.StatusConflict,
		dErrors.CodeRateLimited:       http.StatusTooManyRequests,
		dErrors.CodeStoreUnavailable:  http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

type titleRequest struct {
	Title string `json:"title"`
}

func (r *titleRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.Validation("title", "title is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("valid body is normalized", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"  Ship  "}`))
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[titleRequest](w, r, logger, r.Context(), "req-1")
		if !ok {
			t.Fatalf("expected ok, got status %d", w.Code)
		}
		if req.Title != "Ship" {
			t.Fatalf("expected trimmed title, got %q", req.Title)
		}
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		w := httptest.NewRecorder()
		if _, ok := DecodeAndPrepare[titleRequest](w, r, logger, r.Context(), "req-2"); ok {
			t.Fatalf("expected failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("validation failure is reported", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"   "}`))
		w := httptest.NewRecorder()
		if _, ok := DecodeAndPrepare[titleRequest](w, r, logger, r.Context(), "req-3"); ok {
			t.Fatalf("expected failure")
		}
		var body map[string]string
		_ = json.NewDecoder(w.Body).Decode(&body)
		if body["field"] != "title" {
			t.Fatalf("expected title field, got %v", body)
		}
	})
}
