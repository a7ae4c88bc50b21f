package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"xhstoolbox/pkg/logger"
	"xhstoolbox/pkg/xhs"
)

// UserKey is the store key holding the serialized logged-in user
const UserKey = "xhs_user"

// Session owns the logged-in user. It is read once at Open and written
// only by Login and Logout.
type Session struct {
	store  Store
	logger logger.Logger

	mu   sync.RWMutex
	user *xhs.UserInfo
}

// Open loads the persisted user from store. An unreadable entry is deleted
// and the session starts logged out.
func Open(ctx context.Context, store Store, log logger.Logger) (*Session, error) {
	s := &Session{
		store:  store,
		logger: logger.OrGlobal(log).WithField("component", "session"),
	}

	data, err := store.Load(ctx, UserKey)
	if err != nil {
		switch {
		case stderrors.Is(err, ErrNotFound):
			return s, nil
		case stderrors.Is(err, ErrCorrupt):
			s.discard(ctx, err)
			return s, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var user xhs.UserInfo
	if err := json.Unmarshal(data, &user); err != nil {
		s.discard(ctx, err)
		return s, nil
	}

	s.user = &user
	return s, nil
}

func (s *Session) discard(ctx context.Context, cause error) {
	s.logger.WithError(cause).Warn("Discarding unreadable session")
	if err := s.store.Delete(ctx, UserKey); err != nil && !stderrors.Is(err, ErrNotFound) {
		s.logger.WithError(err).Warn("Failed to delete unreadable session")
	}
}

// User returns a copy of the logged-in user, nil when logged out
func (s *Session) User() *xhs.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LoggedIn reports whether a user is set
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// Login persists user and makes it current
func (s *Session) Login(ctx context.Context, user *xhs.UserInfo) error {
	if user == nil {
		return stderrors.New("user is required")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, UserKey, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	u := *user
	s.user = &u
	s.logger.InfoWithFields("Logged in", map[string]interface{}{
		"user_id":  user.UserID,
		"nickname": user.Nickname,
	})
	return nil
}

// Logout forgets the user. Logging out twice is not an error.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, UserKey); err != nil && !stderrors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.user = nil
	s.logger.Info("Logged out")
	return nil
}
