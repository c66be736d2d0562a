package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimit(t *testing.T) {
	cases := []struct {
		name     string
		max      int64
		body     string
		declared int64
		wantCode int
	}{
		{name: "within limit", max: 10, body: "hello", declared: -1, wantCode: http.StatusOK},
		{name: "actual size over limit", max: 5, body: "excessive", declared: -1, wantCode: http.StatusRequestEntityTooLarge},
		{name: "declared size over limit", max: 5, body: "tiny", declared: 100, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var echoed string
			handler := BodyLimit{Max: tc.max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				echoed = string(data)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(tc.body))
			if tc.declared >= 0 {
				req.ContentLength = tc.declared
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantCode == http.StatusOK && echoed != tc.body {
				t.Fatalf("expected body replayed to handler, got %q", echoed)
			}
		})
	}
}
