package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		redis  error
		status int
		state  string
	}{
		{"all up", nil, http.StatusOK, "ok"},
		{"redis down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSystemHandler(map[string]Check{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return tt.redis },
			}, zerolog.Nop())

			r := gin.New()
			r.GET("/health", h.Health)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Data struct {
					Status       string            `json:"status"`
					Dependencies map[string]string `json:"dependencies"`
				} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Status != tt.state || body.Data.Dependencies["postgres"] != "ok" {
				t.Fatalf("unexpected body %+v", body.Data)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		42 * time.Second:             "0m 42s",
		2*time.Hour + 5*time.Minute:  "2h 5m 0s",
		50*time.Hour + 3*time.Second: "2d 2h 0m 3s",
	}
	for d, want := range cases {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
