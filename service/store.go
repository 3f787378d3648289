package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"renochat/model"
	"renochat/platform"
)

// ClearScope selects how much persisted conversation data a wipe removes.
type ClearScope int

const (
	// ScopeCurrentUser removes only the keys of one employee.
	ScopeCurrentUser ClearScope = iota
	// ScopeAllUsers removes every conversation-prefixed key, whoever owns
	// it. Logout uses this: the device may be shared and a signed-out
	// terminal must not leak another employee's history.
	ScopeAllUsers
)

const (
	conversationKeyPrefix = "conversations_"
	sessionKeyPrefix      = "session_conversations_"
	tokenKey              = "auth_token"
	userKey               = "current_user"
)

var logger = platform.Logger

type ephemeralEntry struct {
	value   string
	touched time.Time
}

// SessionStore is the persistence port for all client state. The durable
// layer is a key-value table in the local database and survives restarts;
// the ephemeral layer is in-process memory scoped to one run, kept as a
// fallback for when the durable layer is unavailable or was cleared
// mid-session. Reads prefer durable, writes go to both.
type SessionStore struct {
	db *gorm.DB

	mu        sync.Mutex
	ephemeral map[string]ephemeralEntry
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{
		db:        db,
		ephemeral: make(map[string]ephemeralEntry),
	}
}

func conversationKey(employeeID int) string {
	return fmt.Sprintf("%s%d", conversationKeyPrefix, employeeID)
}

func sessionKey(employeeID int) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, employeeID)
}

func (s *SessionStore) setDurable(key, value string) error {
	entry := model.StoreEntry{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write store entry %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) getDurable(key string) (string, bool) {
	var entry model.StoreEntry
	if err := s.db.Where("key = ?", key).First(&entry).Error; err != nil {
		return "", false
	}
	return entry.Value, true
}

func (s *SessionStore) deleteDurable(keys ...string) {
	if err := s.db.Where("key IN ?", keys).Delete(&model.StoreEntry{}).Error; err != nil {
		logger.Warnf("[store] delete keys error, %s", err)
	}
}

func (s *SessionStore) deleteDurablePrefix(prefix string) {
	if err := s.db.Where("key LIKE ?", prefix+"%").Delete(&model.StoreEntry{}).Error; err != nil {
		logger.Warnf("[store] delete prefix %s error, %s", prefix, err)
	}
}

func (s *SessionStore) setEphemeral(key, value string) {
	s.mu.Lock()
	s.ephemeral[key] = ephemeralEntry{value: value, touched: time.Now()}
	s.mu.Unlock()
}

func (s *SessionStore) getEphemeral(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.ephemeral[key]
	if !ok {
		return "", false
	}
	entry.touched = time.Now()
	s.ephemeral[key] = entry
	return entry.value, true
}

// SaveConversations persists the conversation list for one employee to both
// layers. Conversations without messages are filtered out first; if nothing
// is left after filtering, nothing is written, so a freshly created empty
// conversation never reaches storage.
func (s *SessionStore) SaveConversations(employeeID int, conversations []model.Conversation) error {
	toSave := make([]model.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if len(conv.Messages) > 0 {
			toSave = append(toSave, conv)
		}
	}
	if len(toSave) == 0 {
		return nil
	}

	data, err := json.Marshal(toSave)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	if err := s.setDurable(conversationKey(employeeID), string(data)); err != nil {
		return err
	}
	s.setEphemeral(sessionKey(employeeID), string(data))
	return nil
}

// LoadConversations reads the persisted list for one employee, preferring
// the durable layer. A parse failure is treated the same as absence.
func (s *SessionStore) LoadConversations(employeeID int) ([]model.Conversation, bool) {
	raw, ok := s.getDurable(conversationKey(employeeID))
	if !ok {
		raw, ok = s.getEphemeral(sessionKey(employeeID))
	}
	if !ok {
		return nil, false
	}

	var conversations []model.Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		logger.Warnf("[store] parse conversations for employee %d error, %s", employeeID, err)
		return nil, false
	}
	return conversations, true
}

// ClearConversations wipes persisted conversation data in both layers.
func (s *SessionStore) ClearConversations(scope ClearScope, employeeID int) {
	switch scope {
	case ScopeAllUsers:
		s.deleteDurablePrefix(conversationKeyPrefix)
		s.mu.Lock()
		for key := range s.ephemeral {
			if strings.HasPrefix(key, sessionKeyPrefix) || strings.HasPrefix(key, conversationKeyPrefix) {
				delete(s.ephemeral, key)
			}
		}
		s.mu.Unlock()
	case ScopeCurrentUser:
		s.deleteDurable(conversationKey(employeeID))
		s.mu.Lock()
		delete(s.ephemeral, sessionKey(employeeID))
		s.mu.Unlock()
	}
}

// SaveCredentials stores the bearer token and the cached user record.
func (s *SessionStore) SaveCredentials(token string, user *model.User) error {
	if err := s.setDurable(tokenKey, token); err != nil {
		return err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return s.setDurable(userKey, string(data))
}

func (s *SessionStore) LoadToken() (string, bool) {
	return s.getDurable(tokenKey)
}

func (s *SessionStore) LoadUser() (*model.User, error) {
	raw, ok := s.getDurable(userKey)
	if !ok {
		return nil, fmt.Errorf("no cached user")
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to parse cached user: %w", err)
	}
	return &user, nil
}

func (s *SessionStore) ClearCredentials() {
	s.deleteDurable(tokenKey, userKey)
}

// SweepEphemeral drops ephemeral entries untouched for longer than maxIdle.
// Run periodically so an abandoned session does not hold history in memory
// for the life of the process.
func (s *SessionStore) SweepEphemeral(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for key, entry := range s.ephemeral {
		if entry.touched.Before(cutoff) {
			delete(s.ephemeral, key)
			swept++
		}
	}
	return swept
}
