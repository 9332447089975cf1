package identity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	pkgauth "github.com/angelmondragon/ecofinds-storefront/pkg/auth"
	"github.com/angelmondragon/ecofinds-storefront/pkg/auth/session"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const defaultDisplayName = "User"

// Listener observes session transitions.
type Listener func(ctx context.Context, change Change)

// Principal is an authenticated access token.
type Principal struct {
	Session   Session
	AccessID  string
	ExpiresAt time.Time
}

// Service signs users in and out and validates access tokens.
type Service interface {
	SignIn(ctx context.Context, input SignInInput) (*Result, error)
	SignUp(ctx context.Context, input SignUpInput) (*Result, error)
	SignOut(ctx context.Context, principal Principal) error
	Authenticate(ctx context.Context, token string) (*Principal, error)
	OnSessionChange(fn Listener) (unsubscribe func())
}

type profileStore interface {
	Create(ctx context.Context, p Profile) error
	Find(ctx context.Context, uid string) (Profile, error)
}

type sessionManager interface {
	Open(ctx context.Context, accessID, uid string) error
	Revoke(ctx context.Context, accessID string) error
	Owner(ctx context.Context, accessID string) (string, error)
}

type ServiceParams struct {
	Provider Provider
	Profiles profileStore
	Sessions sessionManager
	JWT      config.JWTConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	provider Provider
	profiles profileStore
	sessions sessionManager
	tokens   *pkgauth.Signer
	logg     *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity provider is required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile store is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	tokens, err := pkgauth.NewSigner(params.JWT)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid jwt config")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		provider:  params.Provider,
		profiles:  params.Profiles,
		sessions:  params.Sessions,
		tokens:    tokens,
		logg:      logg,
		now:       now,
		listeners: map[int]Listener{},
	}, nil
}

func (s *service) SignIn(ctx context.Context, input SignInInput) (*Result, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please fill in all fields")
	}
	if !ValidEmail(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please enter a valid email address")
	}

	account, err := s.provider.SignIn(ctx, email, input.Password)
	if err != nil {
		return nil, mapProviderError(err, false)
	}

	name := account.DisplayName
	if name == "" {
		name = defaultDisplayName
	}
	sess := Session{UID: account.UID, Email: account.Email, DisplayName: name, Username: name, CreatedAt: s.now().UTC()}

	profile, err := s.profiles.Find(ctx, account.UID)
	switch {
	case err == nil:
		if profile.Username != "" {
			sess.Username = profile.Username
			sess.DisplayName = profile.Username
		}
		if !profile.CreatedAt.IsZero() {
			sess.CreatedAt = profile.CreatedAt
		}
	case !errors.Is(err, ErrProfileNotFound):
		s.logg.WarnErr(s.logg.WithUserID(ctx, account.UID), "identity.profile_read_failed", err)
	}

	return s.issue(ctx, sess, EventSignedIn)
}

func (s *service) SignUp(ctx context.Context, input SignUpInput) (*Result, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || input.Password == "" || input.ConfirmPassword == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please fill in all fields")
	}
	if len([]rune(username)) < minUsernameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Username must be at least 3 characters long")
	}
	if !ValidEmail(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Please enter a valid email address")
	}
	if check := CheckPassword(input.Password); !check.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, strings.Join(check.Messages, ". ")).
			WithDetails(map[string]any{"strength": check.Strength})
	}
	if input.Password != input.ConfirmPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Passwords do not match")
	}

	account, err := s.provider.SignUp(ctx, email, input.Password, username)
	if err != nil {
		return nil, mapProviderError(err, true)
	}

	now := s.now().UTC()
	if err := s.profiles.Create(ctx, Profile{UID: account.UID, Username: username, Email: email, CreatedAt: now}); err != nil {
		s.logg.WarnErr(s.logg.WithUserID(ctx, account.UID), "identity.profile_write_failed", err)
	}

	sess := Session{UID: account.UID, Email: account.Email, DisplayName: username, Username: username, CreatedAt: now}
	if sess.Email == "" {
		sess.Email = email
	}
	return s.issue(ctx, sess, EventSignedUp)
}

func (s *service) issue(ctx context.Context, sess Session, event Event) (*Result, error) {
	now := s.now()
	accessID := session.NewAccessID()
	token, expires, err := s.tokens.Mint(now, accessID, pkgauth.Identity{
		UID:         sess.UID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Username:    sess.Username,
		CreatedAt:   sess.CreatedAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	if err := s.sessions.Open(ctx, accessID, sess.UID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open session")
	}

	copied := sess
	s.notify(ctx, Change{Event: event, UID: sess.UID, Session: &copied})
	return &Result{Session: sess, AccessToken: token, ExpiresAt: expires}, nil
}

// SignOut revokes the access session. Provider revocation is best-effort.
func (s *service) SignOut(ctx context.Context, principal Principal) error {
	if err := s.sessions.Revoke(ctx, principal.AccessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	if err := s.provider.SignOut(ctx, principal.Session.UID); err != nil {
		s.logg.WarnErr(s.logg.WithUserID(ctx, principal.Session.UID), "identity.provider_signout_failed", err)
	}
	s.notify(ctx, Change{Event: EventSignedOut, UID: principal.Session.UID})
	return nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	owner, err := s.sessions.Owner(ctx, claims.ID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session has ended")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check session")
	case owner != claims.UID:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session belongs to another account")
	}

	id := claims.Identity()
	p := &Principal{
		Session: Session{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			Username:    id.Username,
			CreatedAt:   id.CreatedAt,
		},
		AccessID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return p, nil
}

// OnSessionChange registers fn for every later transition. Listeners run
// synchronously in registration order.
func (s *service) OnSessionChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *service) notify(ctx context.Context, change Change) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, change)
	}
}
