// Package testutil provides shared fixtures for ikebana's tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Common test errors.
var (
	ErrIntentional = errors.New("intentional error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// Logger is a small interface fixture for As-style bindings.
type Logger interface {
	Log(msg string)
	Logs() []string
}

// MemoryLogger implements Logger, recording messages in memory.
type MemoryLogger struct {
	mu   sync.Mutex
	logs []string
}

// NewMemoryLogger creates a MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *MemoryLogger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.logs))
	copy(out, l.logs)
	return out
}

// Config is a leaf dependency with no constructor parameters.
type Config struct {
	ID    string
	Value string
}

// NewConfig creates a Config with a unique ID so tests can compare
// instance identity.
func NewConfig() *Config {
	return &Config{ID: uuid.NewString(), Value: "default"}
}

// Database depends on Config and supports disposal.
type Database struct {
	ID     string
	Config *Config

	mu     sync.Mutex
	closed bool
}

// NewDatabase creates a Database.
func NewDatabase(cfg *Config) *Database {
	return &Database{ID: uuid.NewString(), Config: cfg}
}

// Close implements the plain disposal interface.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDisposal
	}
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Database) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Service depends on both Database and Logger.
type Service struct {
	ID     string
	DB     *Database
	Logger Logger
}

// NewService creates a Service.
func NewService(db *Database, logger Logger) *Service {
	return &Service{ID: uuid.NewString(), DB: db, Logger: logger}
}

// ContextCloser records the context it was disposed with.
type ContextCloser struct {
	mu       sync.Mutex
	closed   bool
	closeCtx context.Context
	err      error
}

// NewContextCloser creates a ContextCloser that returns err from Close.
func NewContextCloser(err error) *ContextCloser {
	return &ContextCloser{err: err}
}

// Close implements the context-aware disposal interface.
func (c *ContextCloser) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCtx = ctx
	return c.err
}

// Closed reports whether Close was called.
func (c *ContextCloser) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CloseContext returns the context passed to Close.
func (c *ContextCloser) CloseContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCtx
}
