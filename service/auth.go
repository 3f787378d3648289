package service

import (
	"errors"
	"sync"

	"renochat/lib"
	"renochat/model"
)

// ErrNotAuthenticated gates every conversation operation.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthService owns the current user identity and the bearer token
// lifecycle. Conversation state is only allowed to exist while this service
// reports an authenticated session.
type AuthService struct {
	client *lib.ApiClient
	store  *SessionStore
	tokens *TokenService

	mu   sync.RWMutex
	user *model.User
}

func NewAuthService(client *lib.ApiClient, store *SessionStore) *AuthService {
	return &AuthService{
		client: client,
		store:  store,
		tokens: &TokenService{},
	}
}

// Login makes the given user and token the process-wide current session and
// persists both for restore on the next start.
func (s *AuthService) Login(user *model.User, token string) error {
	if err := s.store.SaveCredentials(token, user); err != nil {
		return err
	}
	s.client.SetToken(token)
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// LoginWithCredentials authenticates against the employee backend and, on
// success, establishes the session.
func (s *AuthService) LoginWithCredentials(creds model.LoginRequest) (*model.LoginResponse, error) {
	resp, err := s.client.Login(creds)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, lib.ErrAuthFailed
	}
	if err := s.Login(&resp.User, resp.Access); err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout clears the session and purges persisted conversation data for
// every user on this device, not just the one signing out.
func (s *AuthService) Logout() {
	s.mu.Lock()
	user := s.user
	s.user = nil
	s.mu.Unlock()

	employeeID := 0
	if user != nil {
		employeeID = user.Employee.ID
	}
	s.store.ClearCredentials()
	s.store.ClearConversations(ScopeAllUsers, employeeID)
	s.client.Logout()

	if user != nil {
		logger.Infof("[auth] user %s logged out", user.Username)
	}
}

// CheckAuth restores a session from persisted credentials on startup. The
// cached user record is trusted when the backend is unreachable; when the
// profile endpoint answers, its record replaces the cache. Any parse
// failure or locally-expired token wipes the credentials.
func (s *AuthService) CheckAuth() bool {
	token, ok := s.store.LoadToken()
	if !ok || token == "" {
		return false
	}

	cached, err := s.store.LoadUser()
	if err != nil {
		logger.Warnf("[auth] restore session error, %s", err)
		s.store.ClearCredentials()
		s.client.ClearToken()
		return false
	}

	if s.tokens.Expired(token) {
		logger.Infof("[auth] stored token expired, clearing session")
		s.store.ClearCredentials()
		s.client.ClearToken()
		return false
	}

	s.client.SetToken(token)

	profile, err := s.client.GetProfile()
	if err != nil {
		if errors.Is(err, lib.ErrAuthFailed) {
			s.store.ClearCredentials()
			s.mu.Lock()
			s.user = nil
			s.mu.Unlock()
			return false
		}
		// Backend not reachable, fall back to the cached record.
		logger.Infof("[auth] backend not available, using cached user data")
		s.mu.Lock()
		s.user = cached
		s.mu.Unlock()
		return true
	}

	if err := s.store.SaveCredentials(token, profile); err != nil {
		logger.Warnf("[auth] refresh cached user error, %s", err)
	}
	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()
	return true
}

// ResumeWithToken establishes a session from a bearer token presented on a
// request, for clients that kept their token but whose server process lost
// its state. The token is validated against the profile endpoint; locally
// expired or rejected tokens never create a session.
func (s *AuthService) ResumeWithToken(token string) bool {
	if token == "" || s.tokens.Expired(token) {
		return false
	}

	s.client.SetToken(token)
	profile, err := s.client.GetProfile()
	if err != nil {
		s.client.ClearToken()
		return false
	}

	if err := s.store.SaveCredentials(token, profile); err != nil {
		logger.Warnf("[auth] persist resumed session error, %s", err)
	}
	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()
	logger.Infof("[auth] session resumed from bearer token for %s", profile.Username)
	return true
}

// CurrentUser returns the user of the active session, or nil.
func (s *AuthService) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated is derived purely from user presence.
func (s *AuthService) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}
