package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/logger"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

var log = logger.New("database")

// onlineWindowSeconds is models.OnlineWindow as passed to SQL.
var onlineWindowSeconds = int64(models.OnlineWindow.Seconds())

type PostgresDB struct {
	*sql.DB
}

func NewPostgresDB(connStr string, pool PoolConfig) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresDB{db}, nil
}

const userColumns = `id, username, email, password_hash,
		       COALESCE(avatar_url, ''), COALESCE(status, ''),
		       last_seen, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.Status,
		&user.LastSeen,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a user. Uniqueness is left to the users constraints;
// a violation comes back as ErrUsernameTaken, ErrEmailTaken or ErrUserConflict.
func (db *PostgresDB) CreateUser(ctx context.Context, username, email, passwordHash, avatarURL string) (*models.User, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		username, email, passwordHash, avatarURL)

	user, err := scanUser(row)
	if err != nil {
		return nil, classifyUserError(err)
	}
	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (db *PostgresDB) UpdateLastSeen(ctx context.Context, userID int64) error {
	result, err := db.ExecContext(ctx, "UPDATE users SET last_seen = NOW() WHERE id = $1", userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SearchUsers matches query as a case-insensitive substring of usernames.
// Online users come first, then usernames in ascending order.
func (db *PostgresDB) SearchUsers(ctx context.Context, query string, limit int) ([]*models.UserSearchResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, COALESCE(avatar_url, ''), COALESCE(status, ''),
		       COALESCE(last_seen > NOW() - make_interval(secs => $2), false) AS online
		FROM users
		WHERE username ILIKE $1
		ORDER BY online DESC, username ASC
		LIMIT $3`,
		"%"+escapeLike(query)+"%", onlineWindowSeconds, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*models.UserSearchResult{}
	for rows.Next() {
		var u models.UserSearchResult
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL, &u.Status, &u.Online); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// rollback is deferred after BeginTx; it is a no-op once the tx committed.
func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn("Rollback failed: %v", err)
	}
}
