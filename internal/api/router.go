package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	maxBodyBytes    = 1 << 20
)

type requestIDKey struct{}

var httpLog = logger.New("http")

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Functions are the three services mounted by NewRouter.
type Functions struct {
	Auth  Function
	Chats Function
	Users Function
}

// NewRouter mounts every function on its own path. All methods are routed to
// the function, which answers OPTIONS and 405 itself.
func NewRouter(fns Functions, db Pinger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware())

	router.Any("/api/auth", Adapt(fns.Auth))
	router.Any("/api/chats", Adapt(fns.Chats))
	router.Any("/api/users", Adapt(fns.Users))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Adapt turns a Function into a gin handler: the HTTP request becomes a
// Request and the Response envelope is written back as-is.
func Adapt(fn Function) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := requestFromGin(c)
		if err != nil {
			writeResponse(c, errorResponse(http.StatusBadRequest, msgInvalidBody))
			return
		}
		writeResponse(c, fn.Handle(c.Request.Context(), req))
	}
}

func requestFromGin(c *gin.Context) (*Request, error) {
	req := &Request{
		HTTPMethod:            c.Request.Method,
		Headers:               make(map[string]string, len(c.Request.Header)),
		QueryStringParameters: make(map[string]string),
	}

	for name, values := range c.Request.Header {
		if len(values) > 0 {
			req.Headers[name] = values[0]
		}
	}
	for name, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			req.QueryStringParameters[name] = values[0]
		}
	}

	if c.Request.Body != nil {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		req.Body = string(body)
	}

	return req, nil
}

func writeResponse(c *gin.Context, resp *Response) {
	for name, value := range resp.Headers {
		c.Header(name, value)
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			httpLog.Error("Invalid base64 response body: %v", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		body = decoded
	}

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if len(body) > 0 {
		if _, err := c.Writer.Write(body); err != nil {
			httpLog.Warn("Failed to write response: %v", err)
		}
	}
}

// RequestIDMiddleware reuses the caller's X-Request-Id or assigns a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Set("requestID", requestID)

		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestIDFrom returns the request id stored by RequestIDMiddleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware logs one line per request
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		httpLog.Info("%s %s %d %s request_id=%s",
			method, path, c.Writer.Status(), time.Since(start), c.GetString("requestID"))
	}
}
