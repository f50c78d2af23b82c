package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/username/zeninvest/backend/src/logger"
	"github.com/username/zeninvest/backend/src/models"
	"github.com/username/zeninvest/backend/src/storage"
)

// Well-known keys in the backing store: the known-users list and the
// pointer to the last active user id.
const (
	usersKey       = "zen_invest_users"
	lastSessionKey = "zen_invest_last_session"
)

// SessionService maps human-chosen display names to stable user ids and
// tracks which user was last active. The plan store partitions its data by
// the user id this service hands out, so switching users switches the whole
// visible collection.
type SessionService struct {
	kv storage.KVStore
}

func NewSessionService(kv storage.KVStore) *SessionService {
	return &SessionService{kv: kv}
}

func (s *SessionService) loadUsers() ([]models.User, error) {
	raw, ok, err := s.kv.Get(usersKey)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	if !ok {
		return []models.User{}, nil
	}
	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

func (s *SessionService) saveUsers(users []models.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}
	if err := s.kv.Set(usersKey, raw); err != nil {
		return fmt.Errorf("saving users: %w", err)
	}
	return nil
}

// Login resolves a display name to its user, creating the user on first
// use. An existing name reuses its id and refreshes the last-login
// timestamp. The resolved user becomes the last active session.
func (s *SessionService) Login(displayName string) (models.User, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return models.User{}, fmt.Errorf("display name cannot be empty")
	}

	users, err := s.loadUsers()
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	idx := -1
	for i := range users {
		if users[i].DisplayName == name {
			idx = i
			break
		}
	}
	if idx >= 0 {
		users[idx].LastLoginAt = now
	} else {
		users = append(users, models.User{
			ID:          uuid.New().String(),
			DisplayName: name,
			CreatedAt:   now,
			LastLoginAt: now,
		})
		idx = len(users) - 1
		logger.L.Info("New journaling identity created", "displayName", name, "userID", users[idx].ID)
	}

	if err := s.saveUsers(users); err != nil {
		return models.User{}, err
	}
	if err := s.kv.Set(lastSessionKey, []byte(users[idx].ID)); err != nil {
		return models.User{}, fmt.Errorf("recording last session: %w", err)
	}
	return users[idx], nil
}

// Resume returns the user of the last active session, or ok=false when no
// session was recorded or the recorded id no longer resolves.
func (s *SessionService) Resume() (models.User, bool, error) {
	raw, ok, err := s.kv.Get(lastSessionKey)
	if err != nil {
		return models.User{}, false, fmt.Errorf("reading last session: %w", err)
	}
	if !ok {
		return models.User{}, false, nil
	}
	users, err := s.loadUsers()
	if err != nil {
		return models.User{}, false, err
	}
	id := string(raw)
	for _, u := range users {
		if u.ID == id {
			return u, true, nil
		}
	}
	return models.User{}, false, nil
}

// Logout clears the last-active-session pointer. The user and their plans
// are untouched.
func (s *SessionService) Logout() error {
	if err := s.kv.Delete(lastSessionKey); err != nil {
		return fmt.Errorf("clearing last session: %w", err)
	}
	return nil
}

// GetUser resolves a user id to its record, for token-authenticated
// requests.
func (s *SessionService) GetUser(userID string) (models.User, bool, error) {
	users, err := s.loadUsers()
	if err != nil {
		return models.User{}, false, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, true, nil
		}
	}
	return models.User{}, false, nil
}
