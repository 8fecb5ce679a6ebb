package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

// chatCreateAttempts bounds the find-or-insert loop in GetOrCreateChat.
const chatCreateAttempts = 3

// ListChats returns every chat userID takes part in, described by the other
// participant. Chats with the most recent message come first and chats without
// messages come last.
func (db *PostgresDB) ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id,
		       u.id,
		       u.username,
		       COALESCE(u.avatar_url, ''),
		       COALESCE(u.status, ''),
		       COALESCE(u.last_seen > NOW() - make_interval(secs => $2), false) AS online,
		       lm.message_text,
		       lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		         WHERE m.chat_id = c.id AND m.sender_id <> $1 AND m.is_read = false) AS unread_count
		FROM chats c
		JOIN chat_participants me ON me.chat_id = c.id AND me.user_id = $1
		JOIN chat_participants cp ON cp.chat_id = c.id AND cp.user_id <> $1
		JOIN users u ON u.id = cp.user_id
		LEFT JOIN LATERAL (
			SELECT message_text, created_at FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON true
		ORDER BY lm.created_at DESC NULLS LAST, c.id DESC`,
		userID, onlineWindowSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []*models.ChatSummary{}
	for rows.Next() {
		var chat models.ChatSummary
		var lastMessage sql.NullString
		var lastMessageTime sql.NullTime

		err := rows.Scan(
			&chat.ChatID,
			&chat.UserID,
			&chat.Username,
			&chat.AvatarURL,
			&chat.Status,
			&chat.Online,
			&lastMessage,
			&lastMessageTime,
			&chat.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}

		if lastMessage.Valid {
			chat.LastMessage = &lastMessage.String
		}
		if lastMessageTime.Valid {
			chat.LastMessageTime = &lastMessageTime.Time
		}

		chats = append(chats, &chat)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat rows: %w", err)
	}

	return chats, nil
}

// FindChat returns the chat of the unordered pair {userID, otherUserID}, or
// ErrChatNotFound. A user's self-chat is distinct from their other chats.
func (db *PostgresDB) FindChat(ctx context.Context, userID, otherUserID int64) (int64, error) {
	var chatID int64
	err := db.QueryRowContext(ctx,
		"SELECT id FROM chats WHERE pair_key = $1",
		models.PairKey(userID, otherUserID)).Scan(&chatID)

	if err == sql.ErrNoRows {
		return 0, ErrChatNotFound
	}
	if err != nil {
		return 0, err
	}
	return chatID, nil
}

// GetOrCreateChat returns the chat shared by the two users, creating it when
// it does not exist yet. The unique pair_key on chats turns a concurrent
// creation into a unique violation, after which the lookup is repeated.
func (db *PostgresDB) GetOrCreateChat(ctx context.Context, userID, otherUserID int64) (int64, error) {
	for attempt := 1; attempt <= chatCreateAttempts; attempt++ {
		chatID, err := db.FindChat(ctx, userID, otherUserID)
		if err == nil {
			return chatID, nil
		}
		if !errors.Is(err, ErrChatNotFound) {
			return 0, err
		}

		chatID, err = db.createChat(ctx, userID, otherUserID)
		if errors.Is(err, ErrChatConflict) {
			log.Debug("Chat %s created concurrently, retrying lookup (attempt %d)",
				models.PairKey(userID, otherUserID), attempt)
			continue
		}
		return chatID, err
	}
	return 0, ErrChatConflict
}

// createChat inserts the chat and both participants in one transaction.
func (db *PostgresDB) createChat(ctx context.Context, userID, otherUserID int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	var chatID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO chats (pair_key) VALUES ($1) RETURNING id",
		models.PairKey(userID, otherUserID)).Scan(&chatID)
	if isUniqueViolation(err) {
		return 0, ErrChatConflict
	}
	if err != nil {
		return 0, err
	}

	// A self-chat lists the same user twice; the second row is a no-op.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_participants (chat_id, user_id)
		VALUES ($1, $2), ($1, $3)
		ON CONFLICT DO NOTHING`,
		chatID, userID, otherUserID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Info("Created chat %d for users %d and %d", chatID, userID, otherUserID)
	return chatID, nil
}

func (db *PostgresDB) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)",
		chatID, userID).Scan(&exists)
	return exists, err
}

// CreateMessage stores a message from senderID. It does not check that the
// sender takes part in the chat.
func (db *PostgresDB) CreateMessage(ctx context.Context, chatID, senderID int64, text string) (*models.Message, error) {
	message := &models.Message{
		ChatID:      chatID,
		SenderID:    senderID,
		MessageText: text,
	}

	err := db.QueryRowContext(ctx, `
		INSERT INTO messages (chat_id, sender_id, message_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, is_read`,
		chatID, senderID, text).Scan(&message.ID, &message.CreatedAt, &message.IsRead)
	if err != nil {
		return nil, err
	}

	return message, nil
}

// GetMessages returns the whole history of a chat, oldest first.
func (db *PostgresDB) GetMessages(ctx context.Context, chatID int64) ([]*models.MessageView, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT m.id, m.sender_id, m.message_text, m.created_at,
		       u.username, COALESCE(u.avatar_url, '')
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC, m.id ASC`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.MessageView{}
	for rows.Next() {
		var msg models.MessageView
		err := rows.Scan(&msg.ID, &msg.SenderID, &msg.MessageText, &msg.CreatedAt, &msg.Username, &msg.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}
