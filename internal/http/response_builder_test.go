package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expenses/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want 'value'", got)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"n":1}` {
		t.Errorf("Body = %q", got)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Status(http.StatusNoContent).Body("ignored").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body should be empty, got %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Body(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantBody string
	}{
		{"bad request", BadRequestError("oops"), http.StatusBadRequest, `{"error":"oops"}`},
		{"conflict", ConflictError("exists"), http.StatusConflict, `{"error":"exists"}`},
		{"not found", NotFoundError("missing"), http.StatusNotFound, `{"error":"missing"}`},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests, `{"error":"rate limit exceeded, try again later"}`},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, `{"error":"boom"}`},
		{"html is not escaped into markup", BadRequestError("<b>"), http.StatusBadRequest, `{"error":"<b>"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("Body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	verr := &core.ValidationError{}
	verr.Add("amount", errors.New("amount must be a positive number"))

	w := httptest.NewRecorder()
	ValidationErrorResponse(verr).Write(w)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	want := `{"errors":{"amount":"amount must be a positive number"}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Errorf("Body = %s, want %s", got, want)
	}
}
