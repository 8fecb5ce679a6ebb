package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUserConflict  = errors.New("user violates an integrity constraint")
	ErrChatNotFound  = errors.New("chat not found")
	ErrChatConflict  = errors.New("chat for this pair was created concurrently")
)

const (
	uniqueViolation      pq.ErrorCode  = "23505"
	integrityConstraints pq.ErrorClass = "23"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// classifyUserError maps an insert failure on users to the field that
// collided. Other integrity violations become ErrUserConflict; everything
// else is returned untouched.
func classifyUserError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code.Class() != integrityConstraints {
		return err
	}
	if pqErr.Code == uniqueViolation {
		text := strings.ToLower(pqErr.Constraint + " " + pqErr.Message + " " + pqErr.Detail)
		switch {
		case strings.Contains(text, "username"):
			return ErrUsernameTaken
		case strings.Contains(text, "email"):
			return ErrEmailTaken
		}
	}
	return ErrUserConflict
}
