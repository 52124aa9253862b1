package logging

import (
	"os"
	"strings"
	"sync"
	"time"
)

// CallbackEnv names the callback used by callable handlers, as "module.function".
const CallbackEnv = "LOGGING_CUSTOM_CALLBACK"

// Record is what a callable handler hands to its callback.
type Record struct {
	Time    time.Time
	Level   string
	Logger  string
	Channel string
	Message string
	Caller  string

	// Fields holds the structured fields other than the ones above.
	Fields map[string]any

	// Text is the record rendered with the handler's formatter.
	Text string
}

// Callback receives log records from a callable handler.
type Callback func(Record) error

// Callbacks is a registry of callbacks keyed by "module.function" references.
type Callbacks struct {
	mu  sync.RWMutex
	fns map[string]Callback
}

// NewCallbacks returns an empty registry.
func NewCallbacks() *Callbacks {
	return &Callbacks{fns: make(map[string]Callback)}
}

// Register binds ref to fn, replacing any earlier binding.
func (c *Callbacks) Register(ref string, fn Callback) *Callbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns[ref] = fn
	return c
}

// Lookup returns the callback bound to ref.
func (c *Callbacks) Lookup(ref string) (Callback, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.fns[ref]
	return fn, ok && fn != nil
}

// CallableHandler forwards records to the callback selected by CallbackEnv.
// Without a usable reference it discards everything.
type CallableHandler struct {
	callback Callback
}

// NewCallableHandler resolves the callback named by CallbackEnv in callbacks.
// An unset, malformed or unregistered reference yields a no-op handler.
func NewCallableHandler(callbacks *Callbacks) *CallableHandler {
	return &CallableHandler{callback: resolveCallback(os.Getenv(CallbackEnv), callbacks)}
}

func resolveCallback(ref string, callbacks *Callbacks) Callback {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil
	}
	fn, ok := callbacks.Lookup(ref)
	if !ok {
		return nil
	}
	return fn
}

// Enabled reports whether a callback was resolved.
func (h *CallableHandler) Enabled() bool {
	return h.callback != nil
}

// Handle delivers rec to the callback. Callback errors and panics never
// reach the caller.
func (h *CallableHandler) Handle(rec Record) {
	if h.callback == nil {
		return
	}
	defer func() { _ = recover() }()
	_ = h.callback(rec)
}
