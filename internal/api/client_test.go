package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// staticTokens is a TokenSource returning a fixed value.
type staticTokens struct{ tok string }

func (s staticTokens) Token() string { return s.tok }

func newTestClient(t *testing.T, handler http.Handler, tok string, onAuth func()) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL:     srv.URL + "/api",
		HTTPClient:  srv.Client(),
		Tokens:      staticTokens{tok: tok},
		OnAuthError: onAuth,
	})
	return c, srv
}

func TestCall_AttachesTokenAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"username":"ada"}`))
	})
	c, _ := newTestClient(t, mux, "sekret", nil)

	u, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if u.Username != "ada" {
		t.Errorf("Username = %q", u.Username)
	}
	if gotAuth != "Token sekret" {
		t.Errorf("Authorization = %q, want Token sekret", gotAuth)
	}
	if gotReqID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestLogin_SendsNoCredential(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":7,"username":"ada"},"token":"fresh"}`))
	})
	// A stale token is present; login must not send it.
	c, _ := newTestClient(t, mux, "stale", nil)

	resp, err := c.Login(context.Background(), Credentials{Username: "ada", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty on login", gotAuth)
	}
	if resp.Token != "fresh" || resp.User.ID != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCall_Unauthorized_FiresAuthHook(t *testing.T) {
	var hookCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	})
	c, _ := newTestClient(t, mux, "stale", func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.CurrentUser(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatal("error is not *Error")
	}
	if ae.Code != CodeUnauthorized || ae.Status != http.StatusUnauthorized {
		t.Errorf("unexpected error fields: %+v", ae)
	}
	if n := atomic.LoadInt32(&hookCalls); n != 1 {
		t.Errorf("auth hook fired %d times, want 1", n)
	}
}

func TestCall_Unauthorized_OnLoginDoesNotFireHook(t *testing.T) {
	var hookCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	})
	c, _ := newTestClient(t, mux, "", func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Login(context.Background(), Credentials{Username: "x", Password: "y"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&hookCalls); n != 0 {
		t.Errorf("auth hook fired %d times on unauthenticated call, want 0", n)
	}
}

func TestCall_DecodesErrorEnvelopeVariants(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"structured envelope", 400, `{"code":"bad_request","message":"missing field"}`, "missing field"},
		{"app error field", 500, `{"error":"upload pipeline unavailable"}`, "upload pipeline unavailable"},
		{"drf detail", 404, `{"detail":"Not found."}`, "Not found."},
		{"empty body", 502, ``, "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/dashboard/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			c, _ := newTestClient(t, mux, "tok", nil)

			_, err := c.Dashboard(context.Background())
			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("error is not *Error: %v", err)
			}
			if ae.Kind != KindServer {
				t.Errorf("Kind = %v, want server", ae.Kind)
			}
			if ae.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", ae.Message, tc.wantMsg)
			}
		})
	}
}

func TestCall_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens anymore

	c := New(Options{
		BaseURL:    url + "/api",
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Tokens:     staticTokens{},
	})
	_, err := c.Dashboard(context.Background())
	if KindOf(err) != KindTransport {
		t.Fatalf("KindOf = %v, want transport; err = %v", KindOf(err), err)
	}
}

func TestError_UserMessage(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{newTransportError(errors.New("dial tcp: refused")), "Network error. Please check your connection and try again."},
		{newStatusError(401, "", ""), "Your session has expired. Please sign in again."},
		{newStatusError(400, "bad_request", "file too large"), "file too large"},
		{newStatusError(500, "", ""), "Internal Server Error"},
	}
	for _, tc := range cases {
		if got := tc.err.UserMessage(); got != tc.want {
			t.Errorf("UserMessage() = %q, want %q", got, tc.want)
		}
	}
}

func TestKindOf_UnclassifiedErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != KindTransport {
		t.Error("plain errors should classify as transport")
	}
	if !IsValidationError(newValidationError("nope")) {
		t.Error("IsValidationError(newValidationError) = false")
	}
}
