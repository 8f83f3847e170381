package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusOK).
		Data(map[string]string{"status": "ok"}).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoPayload(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Header("X-Custom", "value").
		Status(http.StatusNoContent).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
		wantError  string
		wantState  string
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest, "Invalid input", ""},
		{"not found", NotFoundError("job not found"), http.StatusNotFound, "job not found", ""},
		{"internal server error", InternalServerError("Something broke"), http.StatusInternalServerError, "Something broke", ""},
		{"no data", NoDataError("record store unavailable"), http.StatusBadGateway, "record store unavailable", StateNoData},
		{"stale", StaleError(), http.StatusConflict, "superseded by a newer request", StateStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantError || body.State != tt.wantState {
				t.Errorf("Body = %+v, want error %q state %q", body, tt.wantError, tt.wantState)
			}
		})
	}
}

func TestTooManyRequestsError(t *testing.T) {
	w := httptest.NewRecorder()
	TooManyRequestsError(3 * time.Second).Write(w)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status code = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Retry-After = %q, want 3", got)
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("GET").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want 405", w.Code)
	}
	if w.Header().Get("Allow") != "GET" {
		t.Errorf("Allow header = %q", w.Header().Get("Allow"))
	}
}
