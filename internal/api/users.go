package api

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/database"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

const (
	minSearchLen     = 2
	searchResultsCap = 20
)

// UserHandler serves the username directory search
type UserHandler struct {
	DB database.DBInterface
	fn function
}

// NewUserHandler creates a new user directory handler
func NewUserHandler(db database.DBInterface, opts Options) *UserHandler {
	return &UserHandler{
		DB: db,
		fn: newFunction("users", corsPolicy{
			methods: "GET, OPTIONS",
			headers: "Content-Type, X-Auth-Token",
		}, opts),
	}
}

func (h *UserHandler) Handle(ctx context.Context, req *Request) *Response {
	return h.fn.serve(ctx, req, h.dispatch)
}

func (h *UserHandler) dispatch(ctx context.Context, req *Request) (interface{}, error) {
	if !strings.EqualFold(req.HTTPMethod, http.MethodGet) {
		return nil, MethodNotAllowedError()
	}
	return h.Search(ctx, req.Query("q"))
}

// Search finds users whose username contains query, online users first.
// Queries shorter than two characters match nobody.
func (h *UserHandler) Search(ctx context.Context, query string) (*models.UserSearchResponse, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLen {
		return &models.UserSearchResponse{Users: []*models.UserSearchResult{}}, nil
	}

	users, err := h.DB.SearchUsers(ctx, query, searchResultsCap)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.UserSearchResult{}
	}
	return &models.UserSearchResponse{Users: users}, nil
}
