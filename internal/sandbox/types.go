package sandbox

import (
	"context"
	"errors"
	"time"
)

// NoOutput is the result of a successful run that never called console.log.
const NoOutput = "no output produced"

// ErrorPrefix starts every failure message delivered to clients.
const ErrorPrefix = "Some error occurred: "

// MsgStackOverflow reports runaway recursion, worded the way Node does.
const MsgStackOverflow = "RangeError: Maximum call stack size exceeded"

var (
	ErrPoolClosed   = errors.New("sandbox pool is closed")
	ErrQueueTimeout = errors.New("timed out waiting for a free sandbox")
)

// Kind classifies why a run failed.
type Kind int

const (
	// KindError covers thrown values, syntax errors and stack overflows.
	KindError Kind = iota + 1
	// KindTimeout means the wall-clock limit interrupted the script.
	KindTimeout
	// KindCancelled means the caller's context ended first.
	KindCancelled
	// KindInternal means the host side of the runtime panicked.
	KindInternal
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Failure describes a failed run. Output captured before the failure is
// discarded.
type Failure struct {
	Kind    Kind
	Message string
}

// Error implements error
func (f *Failure) Error() string {
	return f.Message
}

// Result holds execution result. Exactly one of Output and Failure is
// meaningful: Failure is nil on success.
type Result struct {
	Output   string
	Failure  *Failure
	Duration time.Duration
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Failure == nil
}

// Config defines sandbox configuration
type Config struct {
	Timeout      time.Duration // Wall-clock limit per run
	MaxCallStack int           // Maximum JS call depth
	PoolSize     int           // Concurrent runtimes
	QueueTimeout time.Duration // Longest wait for a free runtime
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxCallStack: 1024,
		PoolSize:     4,
		QueueTimeout: 10 * time.Second,
	}
}

// Executor runs untrusted script bodies. *Pool implements it.
type Executor interface {
	Run(ctx context.Context, code string) (*Result, error)
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = def.MaxCallStack
	}
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = def.QueueTimeout
	}
	return c
}
