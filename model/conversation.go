package model

import "time"

// Attachment categories derived from MIME prefix and extension.
const (
	FileTypeImage       = "image"
	FileTypeVideo       = "video"
	FileTypeAudio       = "audio"
	FileTypeDocument    = "document"
	FileTypeArchive     = "archive"
	FileTypeSpreadsheet = "spreadsheet"
	FileTypeGeneric     = "file"
)

// FileAttachment is a file or voice-recording payload associated with one
// message. Data carries the base64 payload when the file is small enough to
// inline.
type FileAttachment struct {
	Name      string  `json:"name"`
	Size      int64   `json:"size"`
	Type      string  `json:"type"`
	Extension string  `json:"extension"`
	Data      string  `json:"data,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// Message is a single entry in a conversation thread. Append-only: messages
// are never mutated or deleted individually.
type Message struct {
	ID           int64           `json:"id"`
	Content      string          `json:"content"`
	IsUser       bool            `json:"is_user"`
	Timestamp    time.Time       `json:"timestamp"`
	ResponseTime int64           `json:"response_time,omitempty"`
	File         *FileAttachment `json:"file,omitempty"`
	HasFile      bool            `json:"has_file"`
}

// Conversation is a titled, ordered thread of messages belonging to one
// authenticated employee. The messages slice only grows, and UpdatedAt is
// refreshed on every append.
type Conversation struct {
	ID        string    `json:"id"`
	Employee  Employee  `json:"employee"`
	Title     string    `json:"title,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// ChatRequest is what the client shell hands to the gateway for one send.
type ChatRequest struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversation_id,omitempty"`
	File           *FileAttachment `json:"file,omitempty"`
	HasFile        bool            `json:"has_file"`
}

// ChatResponse is the normalized envelope every responder returns, whatever
// shape the remote endpoint answered with.
type ChatResponse struct {
	ConversationID string  `json:"conversation_id"`
	UserMessage    Message `json:"user_message"`
	AIResponse     Message `json:"ai_response"`
	Source         string  `json:"source"`
}
