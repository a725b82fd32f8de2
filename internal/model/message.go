package model

import (
	"time"
)

// SenderRole identifies which side of the conversation authored a message.
type SenderRole string

const (
	RoleCustomer SenderRole = "customer"
	RoleAgent    SenderRole = "agent"
	RoleAdmin    SenderRole = "admin"
	RoleSystem   SenderRole = "system"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageAudio  MessageType = "audio"
	MessageSystem MessageType = "system"
)

// Message is one entry in a session's conversation log. Messages are never
// hard-deleted; edits and deletions mutate the projection while the first
// pre-edit (or pre-delete) content is kept in OriginalContent exactly once.
type Message struct {
	ID        string `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"index;not null" json:"session_id"`
	TenantID  string `gorm:"index" json:"tenant_id"`

	SenderID   string     `gorm:"index;not null" json:"sender_id"`
	SenderRole SenderRole `gorm:"not null" json:"sender_role"`

	Content     string      `json:"content"`
	MessageType MessageType `gorm:"not null" json:"message_type"`

	// Legacy single-attachment fields, kept for older clients. Attachments
	// carries the full ordered list.
	FileURL     string       `json:"file_url,omitempty"`
	FileName    string       `json:"file_name,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`

	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	IsAIMessage   bool `json:"is_ai_message"`
	TokenDeducted bool `json:"token_deducted"`

	IsEdited bool       `json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// OriginalContent snapshots the live content the first time the message
	// is edited or deleted, and is never overwritten afterwards.
	OriginalContent *string `json:"original_content,omitempty"`

	ReplyToID *string `gorm:"index" json:"reply_to,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the gorm table name.
func (Message) TableName() string { return "messages" }

// AuthoredByCustomerSide reports whether the message originated from the
// customer party. System placeholder messages carry the customer in SenderID
// for continuity but are authored by the system side.
func (m *Message) AuthoredByCustomerSide() bool {
	return m.SenderRole == RoleCustomer && !m.IsAIMessage
}

// Attachment is one stored media object resolved through the external
// attachment store before the message is persisted.
type Attachment struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MessageID string `gorm:"index;not null" json:"-"`

	Kind     MessageType `gorm:"not null" json:"kind"`
	URL      string      `gorm:"not null" json:"url"`
	StoreID  string      `json:"store_id,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	Size     int64       `json:"size"`
	Width    *int        `json:"width,omitempty"`
	Height   *int        `json:"height,omitempty"`
	Duration *float64    `json:"duration,omitempty"`
	Position int         `json:"-"`
}

// TableName sets the gorm table name.
func (Attachment) TableName() string { return "message_attachments" }

// AttachmentInput is a pre-resolved attachment supplied with a send request.
type AttachmentInput struct {
	Kind     MessageType `json:"kind"`
	URL      string      `json:"url"`
	StoreID  string      `json:"store_id,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	Size     int64       `json:"size"`
	Width    *int        `json:"width,omitempty"`
	Height   *int        `json:"height,omitempty"`
	Duration *float64    `json:"duration,omitempty"`
}

// InlineAttachmentInput carries raw bytes that must be resolved through the
// attachment store before the message is persisted. Data is base64 in JSON.
type InlineAttachmentInput struct {
	Kind     MessageType `json:"kind"`
	MIMEType string      `json:"mime_type"`
	FileName string      `json:"file_name,omitempty"`
	Data     []byte      `json:"data"`
}

// SendMessageRequest is the request to send a text or attachment message.
// Type declares the intent (defaults to text); attachment types require at
// least one attachment. Attachments reference objects already stored;
// Inline entries are uploaded through the attachment store as part of the
// send.
type SendMessageRequest struct {
	Content     string                  `json:"content"`
	Type        MessageType             `json:"message_type,omitempty"`
	ReplyTo     string                  `json:"reply_to,omitempty"`
	Attachments []AttachmentInput       `json:"attachments,omitempty"`
	Inline      []InlineAttachmentInput `json:"inline,omitempty"`
}

// EditMessageRequest is the request to edit a message's content.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ListMessagesResponse is the response for listing session messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}
