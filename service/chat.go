package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"renochat/lib"
	"renochat/model"
)

const (
	// MaxMessageLen mirrors the input limit of the chat UI.
	MaxMessageLen = 2000

	titleLimit          = 50
	defaultTitle        = "Nueva conversación"
	attachmentOnlyLabel = "Archivo adjunto"
)

var ErrMessageTooLong = errors.New("message too long")

// chatSession is the in-memory conversation state of one employee:
// the authoritative conversation list, the active-conversation pointer and
// the sending flag. Conversations are ordered newest-first by assignment,
// not by any sorted invariant.
type chatSession struct {
	conversations []model.Conversation
	currentID     string
	isSending     bool
}

// ChatService owns conversation state for every signed-in employee and
// reconciles it across three sources: the durable store, the ephemeral
// store and the remote listing endpoint. Every mutation persists through
// the session store as a side effect.
type ChatService struct {
	auth      *AuthService
	store     *SessionStore
	backend   *lib.ApiClient
	responder Responder

	mu       sync.Mutex
	sessions map[int]*chatSession
}

func NewChatService(auth *AuthService, store *SessionStore, backend *lib.ApiClient, responder Responder) *ChatService {
	return &ChatService{
		auth:      auth,
		store:     store,
		backend:   backend,
		responder: responder,
		sessions:  make(map[int]*chatSession),
	}
}

// sessionFor returns the state for one employee, creating it on first use.
// Callers must hold s.mu.
func (s *ChatService) sessionFor(employeeID int) *chatSession {
	session, ok := s.sessions[employeeID]
	if !ok {
		session = &chatSession{}
		s.sessions[employeeID] = session
	}
	return session
}

// persist writes the session's conversation list through the store. When no
// conversation has messages the user's keys are removed instead, so a
// deletion of the last real conversation is reflected rather than leaving a
// stale blob behind. Writes only happen while a session is active: once the
// user is signed out, nothing may reach storage again.
func (s *ChatService) persist(employeeID int, conversations []model.Conversation) {
	if !s.auth.IsAuthenticated() {
		return
	}
	hasContent := false
	for _, conv := range conversations {
		if len(conv.Messages) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		s.store.ClearConversations(ScopeCurrentUser, employeeID)
		return
	}
	if err := s.store.SaveConversations(employeeID, conversations); err != nil {
		logger.Warnf("[chat] persist conversations for employee %d error, %s", employeeID, err)
	}
}

// LoadConversations resolves the conversation list for the current user.
// Resolution order: durable store, ephemeral store, remote listing, empty.
// Local data, once found, is trusted over the remote listing. Stored
// entries are merged with in-memory conversations that are absent from
// storage and still empty, so a freshly created conversation survives a
// reload without ever duplicating one that already has history.
func (s *ChatService) LoadConversations() ([]model.Conversation, error) {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	employeeID := user.Employee.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionFor(employeeID)

	stored, ok := s.store.LoadConversations(employeeID)
	if ok {
		storedIDs := make(map[string]bool, len(stored))
		for _, conv := range stored {
			storedIDs[conv.ID] = true
		}
		merged := stored
		for _, conv := range session.conversations {
			if !storedIDs[conv.ID] && len(conv.Messages) == 0 {
				merged = append(merged, conv)
			}
		}
		session.conversations = merged
		// Sync both layers with what was read.
		if err := s.store.SaveConversations(employeeID, stored); err != nil {
			logger.Warnf("[chat] resync stored conversations error, %s", err)
		}
		return copyConversations(session.conversations), nil
	}

	remote, err := s.backend.GetConversations()
	if err != nil {
		logger.Infof("[chat] backend not available, starting with empty conversations")
		session.conversations = nil
		return nil, nil
	}
	session.conversations = remote
	s.persist(employeeID, session.conversations)
	return copyConversations(session.conversations), nil
}

// CreateConversation prepends a new empty conversation and makes it
// current. Returns nil without error when no session is active.
func (s *ChatService) CreateConversation(title string) *model.Conversation {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil
	}
	if title == "" {
		title = defaultTitle
	}

	now := time.Now()
	conversation := model.Conversation{
		ID:        uuid.NewString(),
		Employee:  user.Employee,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []model.Message{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionFor(user.Employee.ID)
	session.conversations = append([]model.Conversation{conversation}, session.conversations...)
	session.currentID = conversation.ID

	result := conversation
	return &result
}

// SelectConversation moves the active-conversation pointer. An id missing
// from memory triggers a one-time durable-store lookup; if found there, the
// conversation is spliced in. The pointer is moved regardless: selecting a
// nonexistent conversation is tolerated.
func (s *ChatService) SelectConversation(conversationID string) {
	user := s.auth.CurrentUser()
	if user == nil {
		return
	}
	employeeID := user.Employee.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionFor(employeeID)

	inMemory := false
	for _, conv := range session.conversations {
		if conv.ID == conversationID {
			inMemory = true
			break
		}
	}
	if !inMemory {
		if stored, ok := s.store.LoadConversations(employeeID); ok {
			for _, conv := range stored {
				if conv.ID == conversationID {
					session.conversations = append([]model.Conversation{conv}, session.conversations...)
					break
				}
			}
		}
	}
	session.currentID = conversationID
}

// DeleteConversation removes a conversation from memory and, through the
// persistence side effect, from both stores. The current pointer is cleared
// when it referenced the deleted entry.
func (s *ChatService) DeleteConversation(conversationID string) {
	user := s.auth.CurrentUser()
	if user == nil {
		return
	}
	employeeID := user.Employee.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionFor(employeeID)

	kept := session.conversations[:0:0]
	for _, conv := range session.conversations {
		if conv.ID != conversationID {
			kept = append(kept, conv)
		}
	}
	session.conversations = kept
	if session.currentID == conversationID {
		session.currentID = ""
	}
	s.persist(employeeID, session.conversations)
}

// SendMessage runs the optimistic send sequence. Phase one appends the user
// message synchronously, creating the target conversation if needed, and
// flips the sending flag; it is complete, and persisted, before the network
// round-trip starts. Phase two appends the assistant reply on success. On
// failure the user message stays in place and the error is returned to the
// caller; no apology message is appended and no retry is scheduled.
func (s *ChatService) SendMessage(ctx context.Context, content string, file *model.FileAttachment) (*model.Conversation, error) {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if len([]rune(content)) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}
	if content == "" && file != nil {
		content = attachmentOnlyLabel
	}
	employeeID := user.Employee.ID

	// Phase one: optimistic append.
	s.mu.Lock()
	session := s.sessionFor(employeeID)

	conversationID := session.currentID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	now := time.Now()
	userMessage := model.Message{
		ID:        model.NewMessageID(),
		Content:   content,
		IsUser:    true,
		Timestamp: now,
		HasFile:   file != nil,
		File:      file,
	}

	appended := false
	for i := range session.conversations {
		if session.conversations[i].ID == conversationID {
			session.conversations[i].Messages = append(session.conversations[i].Messages, userMessage)
			session.conversations[i].UpdatedAt = now
			appended = true
			break
		}
	}
	if !appended {
		conversation := model.Conversation{
			ID:        conversationID,
			Employee:  user.Employee,
			Title:     deriveTitle(content),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
			Messages:  []model.Message{userMessage},
		}
		session.conversations = append([]model.Conversation{conversation}, session.conversations...)
	}
	session.currentID = conversationID
	session.isSending = true
	s.persist(employeeID, session.conversations)
	s.mu.Unlock()

	// Phase two: remote round-trip.
	resp, err := s.responder.SendMessage(ctx, model.ChatRequest{
		Message:        content,
		ConversationID: conversationID,
		File:           file,
		HasFile:        file != nil,
	}, user)

	s.mu.Lock()
	defer s.mu.Unlock()
	session.isSending = false
	if err != nil {
		logger.Warnf("[chat] send message for conversation %s error, %s", conversationID, err)
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	// The session may have ended while the reply was in flight. Appending or
	// persisting now would resurrect data the logout already purged.
	if !s.auth.IsAuthenticated() || s.sessions[employeeID] != session {
		logger.Infof("[chat] dropping reply for conversation %s, session ended", conversationID)
		return nil, nil
	}

	aiMessage := resp.AIResponse
	for i := range session.conversations {
		if session.conversations[i].ID == conversationID {
			session.conversations[i].Messages = append(session.conversations[i].Messages, aiMessage)
			session.conversations[i].UpdatedAt = time.Now()
			s.persist(employeeID, session.conversations)
			result := session.conversations[i]
			result.Messages = append([]model.Message(nil), result.Messages...)
			return &result, nil
		}
	}
	// Conversation was deleted while the reply was in flight; drop it.
	return nil, nil
}

// GetCurrentConversation is a pure lookup by the current pointer.
func (s *ChatService) GetCurrentConversation() *model.Conversation {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionFor(user.Employee.ID)
	if session.currentID == "" {
		return nil
	}
	for _, conv := range session.conversations {
		if conv.ID == session.currentID {
			result := conv
			result.Messages = append([]model.Message(nil), conv.Messages...)
			return &result
		}
	}
	return nil
}

// Conversations returns a snapshot of the current user's list.
func (s *ChatService) Conversations() []model.Conversation {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyConversations(s.sessionFor(user.Employee.ID).conversations)
}

// IsSending reports whether a round-trip is in flight for the current user.
func (s *ChatService) IsSending() bool {
	user := s.auth.CurrentUser()
	if user == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionFor(user.Employee.ID).isSending
}

// UploadFile forwards a file to the backend upload endpoint for the current
// conversation.
func (s *ChatService) UploadFile(fileName, mimeType string, content io.Reader) (map[string]any, error) {
	user := s.auth.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	s.mu.Lock()
	conversationID := s.sessionFor(user.Employee.ID).currentID
	s.mu.Unlock()
	if conversationID == "" {
		return nil, errors.New("no current conversation")
	}
	return s.backend.UploadFile(conversationID, fileName, mimeType, content)
}

// Reset drops all in-memory conversation state. Called when authentication
// is lost; persisted data is wiped separately by the auth service.
func (s *ChatService) Reset() {
	s.mu.Lock()
	s.sessions = make(map[int]*chatSession)
	s.mu.Unlock()
}

// deriveTitle titles a conversation from its first message: the first 50
// characters, ellipsized when longer.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return content
}

func copyConversations(conversations []model.Conversation) []model.Conversation {
	out := make([]model.Conversation, len(conversations))
	copy(out, conversations)
	for i := range out {
		out[i].Messages = append([]model.Message(nil), out[i].Messages...)
	}
	return out
}
