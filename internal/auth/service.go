package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
	"ani-canvas-backend/internal/supabase"
)

// ErrPasswordConfirm is the validation failure surfaced before any backend
// call when the sign-up confirmation field does not match.
var ErrPasswordConfirm = errors.New("Password Confirm does not match.")

type documentStore interface {
	CreateUser(user models.User) error
	GetUser(userID string) (*models.User, error)
	CountUsersByEmail(email string) (int, error)
}

type kvStore interface {
	Set(path string, value interface{}) error
	Remove(path string) error
	Subscribe(path string) (<-chan realtime.Event, func())
	OnDisconnect(connID, path string)
	CloseConnection(connID string) error
}

// Service is the session/identity layer: account creation, sign-in/out,
// password and verification mail, the email-collision check, the live user
// profile subscription, and the ephemeral session row mirrored into the
// realtime store.
type Service struct {
	auth      Client
	docs      documentStore
	kv        kvStore
	sharePath string
	logger    *zap.Logger

	mu         sync.Mutex
	sessionIDs map[string]string // user id -> session id for this server session
}

func NewService(authClient Client, docs documentStore, kv kvStore, sharePath string, logger *zap.Logger) *Service {
	return &Service{
		auth:       authClient,
		docs:       docs,
		kv:         kv,
		sharePath:  sharePath,
		logger:     logger,
		sessionIDs: make(map[string]string),
	}
}

func (s *Service) userRef(userID string) string {
	return s.sharePath + "/users/" + userID
}

func (s *Service) sessionRef(sessionID string) string {
	return s.sharePath + "/sessions/" + sessionID
}

// CreateAccount signs the user up with the auth provider and writes the User
// document keyed by the generated identifier before returning. A mismatched
// confirmation short-circuits before any backend call.
func (s *Service) CreateAccount(email, name, password, passwordConfirm string) (*models.User, error) {
	if password != passwordConfirm {
		return nil, ErrPasswordConfirm
	}

	identity, err := s.auth.SignUp(email, password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:        identity.ID,
		Ref:       s.userRef(identity.ID),
		CreatedAt: time.Now().UnixMilli(),
		Name:      name,
		Email:     email,
	}
	if err := s.docs.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}

	return &user, nil
}

func (s *Service) SignIn(email, password string) (*TokenPair, error) {
	return s.auth.SignInWithPassword(email, password)
}

// SignInWithOAuth returns the provider authorization URL the client opens in
// a popup. The redirect back carries provider tokens; this service never sees
// the popup itself.
func (s *Service) SignInWithOAuth(provider string) (string, error) {
	return s.auth.AuthorizeURL(provider)
}

// SignOut removes the caller's session row, then signs the token out with the
// provider, releasing state in reverse order of acquisition.
func (s *Service) SignOut(accessToken, userID string) error {
	s.RemoveSession(userID)
	return s.auth.SignOut(accessToken)
}

func (s *Service) SendPasswordReset(email string) error {
	return s.auth.SendPasswordReset(email)
}

func (s *Service) SendEmailVerification(email string) error {
	return s.auth.SendEmailVerification(email)
}

func (s *Service) UpdatePassword(accessToken, password string) error {
	return s.auth.UpdatePassword(accessToken, password)
}

// CheckEmailCollision reports whether email is free: true iff zero user
// documents match it.
func (s *Service) CheckEmailCollision(email string) (bool, error) {
	count, err := s.docs.CountUsersByEmail(email)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// WatchUser resolves the profile document for an authenticated identity and
// returns it together with a live subscription. When no document exists yet it
// is materialized from the auth identity and the in-memory state completed
// directly, without forcing the caller to reload.
func (s *Service) WatchUser(identity Identity) (*models.User, <-chan realtime.Event, func(), error) {
	events, cancel := s.kv.Subscribe(s.userRef(identity.ID))

	user, err := s.docs.GetUser(identity.ID)
	if err != nil {
		if !errors.Is(err, supabase.ErrNotFound) {
			cancel()
			return nil, nil, nil, err
		}

		name := identity.Name
		if name == "" {
			name = identity.Email
		}
		created := models.User{
			ID:        identity.ID,
			Ref:       s.userRef(identity.ID),
			CreatedAt: time.Now().UnixMilli(),
			Name:      name,
			Email:     identity.Email,
		}
		if err := s.docs.CreateUser(created); err != nil {
			cancel()
			return nil, nil, nil, fmt.Errorf("failed to create user document: %w", err)
		}
		user = &created
	}

	return user, events, cancel, nil
}

// EnsureSessionID returns the per-browser-session identifier for userID,
// generating "{uid}_{unix millis}" on first use.
func (s *Service) EnsureSessionID(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sessionIDs[userID]; ok {
		return id
	}
	id := fmt.Sprintf("%s_%d", userID, time.Now().UnixMilli())
	s.sessionIDs[userID] = id
	return id
}

// SetSession records which gallery the user is currently viewing. Any stale
// row under the same id is cleared first; this is advisory, not transactional.
// Removal on connection drop is registered with the realtime store.
func (s *Service) SetSession(user *models.User, databaseRef string) error {
	if user == nil || databaseRef == "" {
		return nil
	}

	sessionID := s.EnsureSessionID(user.ID)
	ref := s.sessionRef(sessionID)

	if err := s.kv.Remove(ref); err != nil {
		s.logger.Warn("failed to clear stale session", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.kv.Set(ref, models.Session{
		ID:                 user.ID,
		Name:               user.Name,
		CurrentDatabaseRef: databaseRef,
	}); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	s.kv.OnDisconnect(sessionID, ref)
	return nil
}

// HandleDisconnect runs the removals registered for the user's session when
// their live connection drops, matching the store's remove-on-disconnect
// contract.
func (s *Service) HandleDisconnect(userID string) {
	s.mu.Lock()
	sessionID, ok := s.sessionIDs[userID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.kv.CloseConnection(sessionID); err != nil {
		s.logger.Warn("failed to clean up disconnected session",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

// RemoveSession drops the user's session row and forgets the identifier.
func (s *Service) RemoveSession(userID string) {
	s.mu.Lock()
	sessionID, ok := s.sessionIDs[userID]
	delete(s.sessionIDs, userID)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := s.kv.Remove(s.sessionRef(sessionID)); err != nil {
		s.logger.Warn("failed to remove session", zap.String("session_id", sessionID), zap.Error(err))
	}
}
