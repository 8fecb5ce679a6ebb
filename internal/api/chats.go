package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/database"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

const (
	msgUserIDRequired      = "User ID required"
	msgInvalidUserID       = "Invalid user ID"
	msgOtherUserRequired   = "other_user_id required"
	msgSendFieldsRequired  = "chat_id and message_text required"
	msgChatIDRequired      = "chat_id required"
	msgChatAccessForbidden = "Access to chat denied"
)

// ChatHandler handles the chat list, chat creation and messages. The caller
// is identified by the X-User-Id header only.
type ChatHandler struct {
	DB database.DBInterface
	fn function
}

// NewChatHandler creates a new chat handler
func NewChatHandler(db database.DBInterface, opts Options) *ChatHandler {
	return &ChatHandler{
		DB: db,
		fn: newFunction("chats", corsPolicy{
			methods: "GET, POST, OPTIONS",
			headers: "Content-Type, X-Auth-Token, X-User-Id",
		}, opts),
	}
}

func (h *ChatHandler) Handle(ctx context.Context, req *Request) *Response {
	return h.fn.serve(ctx, req, h.dispatch)
}

func (h *ChatHandler) dispatch(ctx context.Context, req *Request) (interface{}, error) {
	userID, err := callerID(req)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(req.HTTPMethod)
	if method == http.MethodGet {
		return h.ListChats(ctx, userID)
	}
	if method != http.MethodPost {
		return nil, MethodNotAllowedError()
	}

	action, err := decodeAction(req)
	if err != nil {
		return nil, err
	}

	switch action {
	case "create_or_get":
		var input models.CreateChatRequest
		if err := decodeBody(req, &input); err != nil {
			return nil, err
		}
		return h.CreateOrGetChat(ctx, userID, input)
	case "send_message":
		var input models.SendMessageRequest
		if err := decodeBody(req, &input); err != nil {
			return nil, err
		}
		return h.SendMessage(ctx, userID, input)
	case "get_messages":
		var input models.GetMessagesRequest
		if err := decodeBody(req, &input); err != nil {
			return nil, err
		}
		return h.GetMessages(ctx, userID, input)
	default:
		return nil, ValidationError(msgInvalidAction)
	}
}

func callerID(req *Request) (int64, error) {
	raw := strings.TrimSpace(req.Header(HeaderUserID))
	if raw == "" {
		return 0, AuthenticationError(msgUserIDRequired)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ValidationError(msgInvalidUserID)
	}
	return id, nil
}

// ListChats returns the caller's chats, most recently active first
func (h *ChatHandler) ListChats(ctx context.Context, userID int64) (*models.ChatListResponse, error) {
	chats, err := h.DB.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []*models.ChatSummary{}
	}
	return &models.ChatListResponse{Chats: chats}, nil
}

// CreateOrGetChat returns the chat shared with another user, creating it on
// first contact. Chatting with oneself is allowed.
func (h *ChatHandler) CreateOrGetChat(ctx context.Context, userID int64, input models.CreateChatRequest) (*models.ChatResponse, error) {
	if input.OtherUserID == 0 {
		return nil, ValidationError(msgOtherUserRequired)
	}

	chatID, err := h.DB.GetOrCreateChat(ctx, userID, input.OtherUserID)
	if err != nil {
		return nil, err
	}
	return &models.ChatResponse{ChatID: chatID}, nil
}

// SendMessage stores a message from the caller
func (h *ChatHandler) SendMessage(ctx context.Context, userID int64, input models.SendMessageRequest) (*models.SendMessageResponse, error) {
	text := strings.TrimSpace(input.MessageText)
	if input.ChatID == 0 || text == "" {
		return nil, ValidationError(msgSendFieldsRequired)
	}

	if err := h.checkAccess(ctx, input.ChatID, userID); err != nil {
		return nil, err
	}

	message, err := h.DB.CreateMessage(ctx, input.ChatID, userID, text)
	if err != nil {
		return nil, err
	}
	return &models.SendMessageResponse{MessageID: message.ID, CreatedAt: message.CreatedAt}, nil
}

// GetMessages returns the history of a chat, oldest first
func (h *ChatHandler) GetMessages(ctx context.Context, userID int64, input models.GetMessagesRequest) (*models.MessagesResponse, error) {
	if input.ChatID == 0 {
		return nil, ValidationError(msgChatIDRequired)
	}

	if err := h.checkAccess(ctx, input.ChatID, userID); err != nil {
		return nil, err
	}

	messages, err := h.DB.GetMessages(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*models.MessageView{}
	}
	return &models.MessagesResponse{Messages: messages}, nil
}

// checkAccess is a no-op unless StrictChatAccess is set.
func (h *ChatHandler) checkAccess(ctx context.Context, chatID, userID int64) error {
	if !h.fn.opts.StrictChatAccess {
		return nil
	}
	ok, err := h.DB.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError(msgChatAccessForbidden)
	}
	return nil
}
