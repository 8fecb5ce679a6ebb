package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	zapLevels = map[int]zapcore.Level{
		LevelDebug: zapcore.DebugLevel,
		LevelInfo:  zapcore.InfoLevel,
		LevelWarn:  zapcore.WarnLevel,
		LevelError: zapcore.ErrorLevel,
	}

	// Default to INFO in production, DEBUG in development
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	baseMu sync.RWMutex
	base   *zap.Logger
)

// Logger is a component-scoped logger on top of a shared zap core
type Logger struct {
	component string
}

func init() {
	applyLevel(GetAppEnv(), os.Getenv("LOG_LEVEL"))
	base = build(GetAppEnv())
}

// applyLevel sets the level for env, DEBUG in development and INFO
// elsewhere, then lets an explicit level name override it.
func applyLevel(env, levelName string) {
	if env == "development" {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
	if lvl, ok := ParseLevel(levelName); ok {
		SetMinLevel(lvl)
	}
}

func build(env string) *zap.Logger {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = level

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// New creates a new logger for a specific component
func New(component string) *Logger {
	return &Logger{component: component}
}

// SetMinLevel allows changing the minimum log level at runtime
func SetMinLevel(lvl int) {
	if zl, ok := zapLevels[lvl]; ok {
		level.SetLevel(zl)
	}
}

// ParseLevel maps a level name such as "debug" or "WARN" to a level constant.
func ParseLevel(name string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return 0, false
}

// Configure resets the level and rebuilds the shared logger for env. main
// calls it once the .env file has been loaded. levelName, when it parses,
// overrides the environment default.
func Configure(env, levelName string) {
	applyLevel(env, levelName)
	Replace(build(env))
}

// Replace swaps the underlying zap logger, for example with zaptest or an
// observer core in tests.
func Replace(l *zap.Logger) {
	baseMu.Lock()
	defer baseMu.Unlock()
	base = l
}

// Sync flushes buffered log entries.
func Sync() error {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Sync()
}

func (l *Logger) sugar() *zap.SugaredLogger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Sugar().With("component", l.component)
}

// Debug logs debug information
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar().Debugf(format, args...)
}

// Info logs information messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar().Infof(format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar().Warnf(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar().Errorf(format, args...)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "development" // Default to development
	}
	return env
}

// IsDevelopment returns true if the current environment is development
func IsDevelopment() bool {
	return GetAppEnv() == "development"
}
