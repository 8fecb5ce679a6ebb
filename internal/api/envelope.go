package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/logger"
)

const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderUserID    = "X-User-Id"

	msgInternalError    = "Internal server error"
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidAction    = "Invalid action"
	msgInvalidBody      = "Invalid request body"
)

// Request is one invocation of a function: the HTTP method, headers, query
// parameters and raw body of the call.
type Request struct {
	HTTPMethod            string            `json:"httpMethod"`
	Headers               map[string]string `json:"headers"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	Body                  string            `json:"body"`
}

// Header returns the value of a header, matching the name case-insensitively.
func (r *Request) Header(name string) string {
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// Query returns a query string parameter, or "" when it is absent.
func (r *Request) Query(name string) string {
	return r.QueryStringParameters[name]
}

// Response is the envelope every function answers with.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
}

// Function handles invocations of one backend function.
type Function interface {
	Handle(ctx context.Context, req *Request) *Response
}

// Options tune behaviour shared by all functions.
type Options struct {
	// ExposeErrors puts the raw error text into 500 responses. Enable it
	// outside production only.
	ExposeErrors bool
	// ValidateTokens makes the auth "verify" action check the token
	// signature, expiry and session instead of only its presence.
	ValidateTokens bool
	// StrictChatAccess requires the caller to be a chat participant to send
	// or read messages.
	StrictChatAccess bool
}

// Error is a failure with the status and client-facing message it maps to.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports missing or malformed input.
func ValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// ConflictError reports a uniqueness violation. It is a 400, like every
// other input problem.
func ConflictError(message string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Err: err}
}

// AuthenticationError reports bad credentials or a missing identity.
func AuthenticationError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// ForbiddenError reports an identified caller acting outside their chats.
func ForbiddenError(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

func MethodNotAllowedError() *Error {
	return &Error{Status: http.StatusMethodNotAllowed, Message: msgMethodNotAllowed}
}

// corsPolicy is what a function announces in its preflight response.
type corsPolicy struct {
	methods string
	headers string
}

func (p corsPolicy) preflight() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": p.methods,
			"Access-Control-Allow-Headers": p.headers,
		},
		Body:            "",
		IsBase64Encoded: false,
	}
}

func baseHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin": "*",
		"Content-Type":                "application/json",
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonResponse(status int, payload interface{}) *Response {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: err.Error()})
	}
	return &Response{
		StatusCode:      status,
		Headers:         baseHeaders(),
		Body:            string(body),
		IsBase64Encoded: false,
	}
}

func errorResponse(status int, message string) *Response {
	return jsonResponse(status, errorBody{Error: message})
}

type dispatchFunc func(ctx context.Context, req *Request) (interface{}, error)

// function holds the request boundary shared by the three services: CORS
// preflight, panic recovery and error to envelope conversion.
type function struct {
	name string
	cors corsPolicy
	opts Options
	log  *logger.Logger
}

func newFunction(name string, cors corsPolicy, opts Options) function {
	return function{name: name, cors: cors, opts: opts, log: logger.New(name)}
}

func (f *function) serve(ctx context.Context, req *Request, dispatch dispatchFunc) (resp *Response) {
	if req == nil {
		req = &Request{}
	}
	if strings.EqualFold(req.HTTPMethod, http.MethodOptions) {
		return f.cors.preflight()
	}

	defer func() {
		if r := recover(); r != nil {
			resp = f.failure(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	payload, err := dispatch(ctx, req)
	if err != nil {
		return f.failure(ctx, err)
	}
	return jsonResponse(http.StatusOK, payload)
}

func (f *function) failure(ctx context.Context, err error) *Response {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		f.log.Debug("Request rejected with %d: %v", apiErr.Status, apiErr)
		return errorResponse(apiErr.Status, apiErr.Message)
	}

	f.log.Error("Unexpected error: %v request_id=%s", err, RequestIDFrom(ctx))
	if f.opts.ExposeErrors {
		return errorResponse(http.StatusInternalServerError, err.Error())
	}
	return errorResponse(http.StatusInternalServerError, msgInternalError)
}

// decodeBody unmarshals the JSON body into dst. An empty body decodes as {}.
func decodeBody(req *Request, dst interface{}) error {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		body = "{}"
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return &Error{Status: http.StatusBadRequest, Message: msgInvalidBody, Err: err}
	}
	return nil
}

// decodeAction reads the "action" discriminator of a POST body.
func decodeAction(req *Request) (string, error) {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := decodeBody(req, &envelope); err != nil {
		return "", err
	}
	return envelope.Action, nil
}
