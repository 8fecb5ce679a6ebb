package models

import (
	"fmt"
	"time"
)

// ChatSummary is one row of a user's chat list, seen from that user
type ChatSummary struct {
	ChatID          int64      `json:"chat_id"`
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username"`
	AvatarURL       string     `json:"avatar_url"`
	Status          string     `json:"status"`
	Online          bool       `json:"online"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	UnreadCount     int64      `json:"unread_count"`
}

// CreateChatRequest is the body of the chats "create_or_get" action
type CreateChatRequest struct {
	OtherUserID int64 `json:"other_user_id"`
}

type ChatResponse struct {
	ChatID int64 `json:"chat_id"`
}

type ChatListResponse struct {
	Chats []*ChatSummary `json:"chats"`
}

// PairKey identifies the unordered pair of chat participants: PairKey(a, b)
// equals PairKey(b, a).
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
