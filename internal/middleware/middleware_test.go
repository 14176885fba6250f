package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"limoseo/internal/auth"
)

type stubAuth struct {
	caller *auth.Caller
	err    error
}

func (s stubAuth) Authenticate(*http.Request) (*auth.Caller, error) { return s.caller, s.err }

func TestAuthenticate(t *testing.T) {
	admin := &auth.Caller{ID: "ops", Role: auth.RoleAdmin}
	tests := []struct {
		name       string
		a          stubAuth
		wantStatus int
		wantCaller *auth.Caller
	}{
		{"caller stored", stubAuth{caller: admin}, http.StatusOK, admin},
		{"anonymous passes", stubAuth{}, http.StatusOK, nil},
		{"bad credentials", stubAuth{err: errors.New("bad token")}, http.StatusUnauthorized, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *auth.Caller
			reached := false
			h := Authenticate(tt.a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				got = auth.FromContext(r.Context())
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/regeneration/status", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			if got != tt.wantCaller {
				t.Errorf("caller: got %+v, want %+v", got, tt.wantCaller)
			}
			if tt.a.err != nil {
				if reached {
					t.Error("handler reached with bad credentials")
				}
				var body errorBody
				json.NewDecoder(rr.Body).Decode(&body)
				if body.Code != "unauthenticated" {
					t.Errorf("code: %q", body.Code)
				}
			}
		})
	}
}

func TestRequireCaller(t *testing.T) {
	h := RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithCaller(req.Context(), &auth.Caller{ID: "e", Role: auth.RoleEditor}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("caller: %d", rr.Code)
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		inner  http.HandlerFunc
		status int
		body   string
	}{
		{"explicit status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, http.StatusNotFound, ""},
		{"implicit 200", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) }, http.StatusOK, "hello"},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, http.StatusBadGateway, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Logger(tt.inner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/content/batch", nil))
			if rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
			if rr.Body.String() != tt.body {
				t.Errorf("body: got %q, want %q", rr.Body.String(), tt.body)
			}
		})
	}
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusCreated)
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.status != http.StatusCreated {
		t.Errorf("got %d, want 201", rec.status)
	}
}

func TestRecoverer(t *testing.T) {
	for _, v := range []any{"boom", 42, errors.New("broken")} {
		h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(v) }))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/crash", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%v: status %d", v, rr.Code)
		}
		var body errorBody
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("%v: %v", v, err)
		}
		if body.Code != "internal" || body.Message != "Internal Server Error" {
			t.Errorf("%v: body %+v", v, body)
		}
	}
}

func TestRecovererPassesThrough(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusAccepted {
		t.Errorf("status: %d", rr.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
}
