// Package session – Store
//
// Store owns the authenticated identity and its token for the lifetime of the
// process. It is the single writer of the persisted session pair: sign-in and
// registration swap identity and token together, sign-out and credential
// rejection clear both together, and no other component touches the
// persistence layer.
//
// Conventions:
//   - All state transitions are atomic under one mutex; readers never observe
//     a token without its identity or vice versa.
//   - Persistence failures degrade the session to in-memory only; they are
//     logged, never surfaced to the caller.
//   - Invalidate is safe to call from any goroutine and is idempotent, so it
//     can serve directly as the API client's unauthorized hook.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/maventax/maven-client/internal/api"
	"github.com/maventax/maven-client/internal/domain"
)

// AuthAPI is the slice of the REST client the session layer depends on.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.UserProfile, error)
}

// Persistence stores the session pair across process restarts.
type Persistence interface {
	SaveSession(ctx context.Context, token, userJSON string) error
	LoadSession(ctx context.Context) (token, userJSON string, err error)
	ClearSession(ctx context.Context) error
}

// Store holds the current session. Safe for concurrent use.
type Store struct {
	api     AuthAPI
	persist Persistence
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
	user  *domain.UserProfile
}

// NewStore constructs a session Store. persist may be nil, in which case the
// session lives only in memory.
func NewStore(authAPI AuthAPI, persist Persistence, log zerolog.Logger) *Store {
	return &Store{api: authAPI, persist: persist, log: log}
}

// Bind installs the auth API after construction. The store serves as the
// client's token source and unauthorized hook while the client serves as the
// store's transport, so wiring is two-phase: construct the store, build the
// client against it, then bind.
func (s *Store) Bind(authAPI AuthAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = authAPI
}

// Restore loads a previously persisted session and validates it against the
// backend. It returns true when a usable session is in place afterwards.
//
// Malformed persisted state is cleared rather than reported: a session that
// cannot be restored is indistinguishable from no session. A rejected token is
// likewise cleared. A transport failure during validation keeps the cached
// identity, so the user is not signed out just because the backend was
// unreachable at startup.
func (s *Store) Restore(ctx context.Context) bool {
	tr := otel.Tracer("session/Store")
	ctx, span := tr.Start(ctx, "Restore")
	defer span.End()

	if s.persist == nil {
		return false
	}
	token, userJSON, err := s.persist.LoadSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore: load failed")
		return false
	}
	if token == "" {
		return false
	}
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil || user.ID == 0 {
		s.log.Warn().Msg("session restore: malformed identity, clearing")
		_ = s.persist.ClearSession(ctx)
		return false
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	// Revalidate against the backend; refresh the cached identity on success.
	fresh, err := s.api.CurrentUser(ctx)
	switch {
	case err == nil:
		s.mu.Lock()
		s.user = fresh
		s.mu.Unlock()
		s.save(ctx, token, fresh)
	case api.IsAuthError(err):
		// Invalidate already ran via the client's unauthorized hook when
		// wired; clearing here covers stores used without the hook.
		s.Invalidate()
		span.SetAttributes(attribute.Bool("session.rejected", true))
		return false
	default:
		s.log.Warn().Err(err).Msg("session restore: validation unreachable, keeping cached identity")
	}
	return true
}

// Login exchanges credentials for a fresh session and persists it.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (*domain.UserProfile, error) {
	tr := otel.Tracer("session/Store")
	ctx, span := tr.Start(ctx, "Login",
		trace.WithAttributes(attribute.String("auth.username", creds.Username)))
	defer span.End()

	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.adopt(ctx, resp)
	return s.User(), nil
}

// Register creates an account and signs in with the returned session.
func (s *Store) Register(ctx context.Context, reg api.Registration) (*domain.UserProfile, error) {
	tr := otel.Tracer("session/Store")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(attribute.String("auth.username", reg.Username)))
	defer span.End()

	resp, err := s.api.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.adopt(ctx, resp)
	return s.User(), nil
}

// EndSession revokes the token server-side on a best-effort basis, then clears
// local state unconditionally. The user ends up signed out even when the
// revocation call fails.
func (s *Store) EndSession(ctx context.Context) {
	tr := otel.Tracer("session/Store")
	ctx, span := tr.Start(ctx, "EndSession")
	defer span.End()

	if s.IsAuthenticated() {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("logout request failed, clearing session anyway")
		}
	}
	s.clear(ctx)
}

// Invalidate drops the session without contacting the backend. It is the
// client's unauthorized hook: the token was already rejected, so revoking it
// would only fail again.
func (s *Store) Invalidate() {
	s.clear(context.Background())
}

// IsAuthenticated reports whether a session token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current session token, or "" when signed out. It
// implements the API client's token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in identity, or nil when signed out.
func (s *Store) User() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Refresh refetches the identity from the backend and updates the cache.
func (s *Store) Refresh(ctx context.Context) (*domain.UserProfile, error) {
	if !s.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	fresh, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = fresh
	tok := s.token
	s.mu.Unlock()
	s.save(ctx, tok, fresh)
	u := *fresh
	return &u, nil
}

// adopt installs the identity and token from an auth response atomically and
// persists the pair.
func (s *Store) adopt(ctx context.Context, resp *api.AuthResponse) {
	user := resp.User
	s.mu.Lock()
	s.token = resp.Token
	s.user = &user
	s.mu.Unlock()
	s.save(ctx, resp.Token, &user)
	s.log.Info().Str("username", user.Username).Msg("session established")
}

func (s *Store) save(ctx context.Context, token string, user *domain.UserProfile) {
	if s.persist == nil {
		return
	}
	buf, err := json.Marshal(user)
	if err != nil {
		s.log.Warn().Err(err).Msg("session persist: identity could not be encoded")
		return
	}
	if err := s.persist.SaveSession(ctx, token, string(buf)); err != nil {
		s.log.Warn().Err(err).Msg("session persist failed, continuing in memory")
	}
}

func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if s.persist != nil {
		if err := s.persist.ClearSession(ctx); err != nil {
			s.log.Warn().Err(err).Msg("session clear: persistence failed")
		}
	}
	s.log.Info().Msg("session cleared")
}
