package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/edgeview/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)

	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log.Debug().Str("stored", tc.stored).Str("input", tc.input).Msg("auth/static-token")
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)

	validator := FuncValidator(func(token string) error {
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})

	if err := validator.Validate("bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
	if err := validator.Validate("ok"); err != nil {
		t.Fatalf("expected success for ok token, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"":                   "",
		"Bearer abc":         "abc",
		"bearer   abc  ":     "abc",
		"Basic dXNlcjpwdw==": "",
		"Bearer":             "",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := BearerToken(r); got != want {
			t.Fatalf("header %q: expected %q, got %q", header, want, got)
		}
	}
}

func TestMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/admin", Middleware(StaticToken{Token: "secret"}), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	for _, tc := range []struct {
		header string
		status int
	}{
		{header: "", status: http.StatusUnauthorized},
		{header: "Bearer wrong", status: http.StatusUnauthorized},
		{header: "Bearer secret", status: http.StatusOK},
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		router.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("header %q: expected %d, got %d", tc.header, tc.status, rec.Code)
		}
	}
}
