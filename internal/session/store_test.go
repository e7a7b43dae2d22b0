package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/domain"
)

// fakeAuthAPI scripts the auth endpoints.
type fakeAuthAPI struct {
	loginResp    *api.AuthResponse
	loginErr     error
	registerResp *api.AuthResponse
	registerErr  error
	logoutErr    error
	logoutCalls  int
	userResp     *domain.UserProfile
	userErr      error
}

func (f *fakeAuthAPI) Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuthAPI) Register(ctx context.Context, reg api.Registration) (*api.AuthResponse, error) {
	return f.registerResp, f.registerErr
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuthAPI) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	return f.userResp, f.userErr
}

// memPersist is an in-memory Persistence.
type memPersist struct {
	token, user string
	saveErr     error
	loadErr     error
	clearCalls  int
}

func (m *memPersist) SaveSession(ctx context.Context, token, userJSON string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token, m.user = token, userJSON
	return nil
}

func (m *memPersist) LoadSession(ctx context.Context) (string, string, error) {
	return m.token, m.user, m.loadErr
}

func (m *memPersist) ClearSession(ctx context.Context) error {
	m.clearCalls++
	m.token, m.user = "", ""
	return nil
}

func TestLogin_EstablishesAndPersistsSession(t *testing.T) {
	authAPI := &fakeAuthAPI{loginResp: &api.AuthResponse{
		User:  domain.UserProfile{ID: 7, Username: "ada"},
		Token: "tok-7",
	}}
	persist := &memPersist{}
	s := NewStore(authAPI, persist, zerolog.Nop())

	u, err := s.Login(context.Background(), api.Credentials{Username: "ada", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if u.ID != 7 || u.Username != "ada" {
		t.Errorf("unexpected user: %+v", u)
	}
	if !s.IsAuthenticated() || s.Token() != "tok-7" {
		t.Errorf("session not established: authed=%v token=%q", s.IsAuthenticated(), s.Token())
	}
	if persist.token != "tok-7" || persist.user == "" {
		t.Errorf("session not persisted: %+v", persist)
	}
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	authAPI := &fakeAuthAPI{loginErr: errors.New("401")}
	s := NewStore(authAPI, &memPersist{}, zerolog.Nop())

	if _, err := s.Login(context.Background(), api.Credentials{}); err == nil {
		t.Fatal("expected error")
	}
	if s.IsAuthenticated() {
		t.Error("failed login must not establish a session")
	}
}

func TestLogin_PersistFailureKeepsInMemorySession(t *testing.T) {
	authAPI := &fakeAuthAPI{loginResp: &api.AuthResponse{
		User:  domain.UserProfile{ID: 1, Username: "ada"},
		Token: "tok",
	}}
	persist := &memPersist{saveErr: errors.New("disk full")}
	s := NewStore(authAPI, persist, zerolog.Nop())

	if _, err := s.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !s.IsAuthenticated() {
		t.Error("persist failure must not block sign-in")
	}
}

func TestRestore_ValidSession(t *testing.T) {
	authAPI := &fakeAuthAPI{userResp: &domain.UserProfile{ID: 7, Username: "ada", Email: "ada@example.com"}}
	persist := &memPersist{token: "tok-7", user: `{"id":7,"username":"ada"}`}
	s := NewStore(authAPI, persist, zerolog.Nop())

	if !s.Restore(context.Background()) {
		t.Fatal("Restore() = false, want true")
	}
	if s.Token() != "tok-7" {
		t.Errorf("Token() = %q", s.Token())
	}
	// Identity refreshed from the backend.
	if u := s.User(); u == nil || u.Email != "ada@example.com" {
		t.Errorf("User() = %+v, want refreshed identity", s.User())
	}
}

func TestRestore_EmptyStore(t *testing.T) {
	s := NewStore(&fakeAuthAPI{}, &memPersist{}, zerolog.Nop())
	if s.Restore(context.Background()) {
		t.Error("Restore() on empty store = true")
	}
	if s.IsAuthenticated() {
		t.Error("empty restore must not authenticate")
	}
}

func TestRestore_MalformedIdentityCleared(t *testing.T) {
	persist := &memPersist{token: "tok", user: `{not json`}
	s := NewStore(&fakeAuthAPI{}, persist, zerolog.Nop())

	if s.Restore(context.Background()) {
		t.Error("Restore() with malformed identity = true")
	}
	if persist.clearCalls == 0 {
		t.Error("malformed persisted state was not cleared")
	}
	if s.IsAuthenticated() {
		t.Error("malformed restore must not authenticate")
	}
}

func TestRestore_RejectedTokenCleared(t *testing.T) {
	authAPI := &fakeAuthAPI{userErr: &api.Error{Kind: api.KindAuth, Status: 401, Code: api.CodeUnauthorized}}
	persist := &memPersist{token: "stale", user: `{"id":7,"username":"ada"}`}
	s := NewStore(authAPI, persist, zerolog.Nop())

	if s.Restore(context.Background()) {
		t.Error("Restore() with rejected token = true")
	}
	if s.IsAuthenticated() {
		t.Error("rejected token must clear the session")
	}
	if persist.token != "" {
		t.Error("rejected token left persisted")
	}
}

func TestRestore_UnreachableBackendKeepsCachedIdentity(t *testing.T) {
	authAPI := &fakeAuthAPI{userErr: errors.New("dial tcp: refused")}
	persist := &memPersist{token: "tok-7", user: `{"id":7,"username":"ada"}`}
	s := NewStore(authAPI, persist, zerolog.Nop())

	if !s.Restore(context.Background()) {
		t.Fatal("Restore() = false on transport failure, want true")
	}
	if u := s.User(); u == nil || u.Username != "ada" {
		t.Errorf("cached identity lost: %+v", s.User())
	}
}

func TestEndSession_ClearsEvenWhenLogoutFails(t *testing.T) {
	authAPI := &fakeAuthAPI{
		loginResp: &api.AuthResponse{User: domain.UserProfile{ID: 1, Username: "ada"}, Token: "tok"},
		logoutErr: errors.New("503"),
	}
	persist := &memPersist{}
	s := NewStore(authAPI, persist, zerolog.Nop())
	if _, err := s.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	s.EndSession(context.Background())
	if authAPI.logoutCalls != 1 {
		t.Errorf("logout called %d times, want 1", authAPI.logoutCalls)
	}
	if s.IsAuthenticated() || s.Token() != "" || s.User() != nil {
		t.Error("session not cleared after EndSession")
	}
	if persist.token != "" {
		t.Error("persisted token not cleared")
	}
}

func TestEndSession_SignedOutSkipsLogoutCall(t *testing.T) {
	authAPI := &fakeAuthAPI{}
	s := NewStore(authAPI, &memPersist{}, zerolog.Nop())
	s.EndSession(context.Background())
	if authAPI.logoutCalls != 0 {
		t.Errorf("logout called %d times while signed out, want 0", authAPI.logoutCalls)
	}
}

func TestInvalidate_Idempotent(t *testing.T) {
	authAPI := &fakeAuthAPI{
		loginResp: &api.AuthResponse{User: domain.UserProfile{ID: 1, Username: "ada"}, Token: "tok"},
	}
	s := NewStore(authAPI, &memPersist{}, zerolog.Nop())
	if _, err := s.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	s.Invalidate()
	s.Invalidate()
	if s.IsAuthenticated() {
		t.Error("session survived Invalidate")
	}
	if authAPI.logoutCalls != 0 {
		t.Error("Invalidate must not call the logout endpoint")
	}
}

func TestRefresh_RequiresSession(t *testing.T) {
	s := NewStore(&fakeAuthAPI{}, nil, zerolog.Nop())
	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Refresh() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestUser_ReturnsCopy(t *testing.T) {
	authAPI := &fakeAuthAPI{
		loginResp: &api.AuthResponse{User: domain.UserProfile{ID: 1, Username: "ada"}, Token: "tok"},
	}
	s := NewStore(authAPI, nil, zerolog.Nop())
	if _, err := s.Login(context.Background(), api.Credentials{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	u := s.User()
	u.Username = "mutated"
	if s.User().Username != "ada" {
		t.Error("User() exposed internal state")
	}
}
