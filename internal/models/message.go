package models

import (
	"time"
)

// Message represents a chat message in the system
type Message struct {
	ID          int64     `json:"id"`
	ChatID      int64     `json:"chat_id"`
	SenderID    int64     `json:"sender_id"`
	MessageText string    `json:"message_text"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
}

// MessageView is a message enriched with its sender's profile
type MessageView struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	MessageText string    `json:"message_text"`
	CreatedAt   time.Time `json:"created_at"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar_url"`
}

// SendMessageRequest is the body of the chats "send_message" action
type SendMessageRequest struct {
	ChatID      int64  `json:"chat_id"`
	MessageText string `json:"message_text"`
}

// GetMessagesRequest is the body of the chats "get_messages" action
type GetMessagesRequest struct {
	ChatID int64 `json:"chat_id"`
}

// SendMessageResponse is what we return after storing a message
type SendMessageResponse struct {
	MessageID int64     `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Messages []*MessageView `json:"messages"`
}
