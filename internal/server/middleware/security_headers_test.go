package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var wantSecurityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "no-referrer",
	"Cache-Control":          "no-store",
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"prediction", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"risk_level":"LOW"}`))
		}},
		{"error reply", func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusBadRequest, "bad feature")
		}},
		{"not found", http.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SecurityHeaders()(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/predict", nil))

			for header, want := range wantSecurityHeaders {
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

func TestSecurityHeaders_KeepsHandlerContentType(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/model", nil))

	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}
