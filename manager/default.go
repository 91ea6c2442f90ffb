package manager

import "sync"

// The process-wide default manager used by the memoize wrappers. It is
// an explicit holder rather than a bare nullable global so tests can
// swap and reset it.
var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Default returns the process-wide manager, constructing one with
// default options on first use.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager == nil {
		defaultManager = New()
	}
	return defaultManager
}

// SetDefault replaces the process-wide manager. A nil m resets the
// holder so the next Default call constructs a fresh one.
func SetDefault(m *Manager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = m
}

// ResetDefault stops the current default manager (if any) and clears
// the holder. Intended for test isolation.
func ResetDefault() {
	defaultMu.Lock()
	m := defaultManager
	defaultManager = nil
	defaultMu.Unlock()

	if m != nil {
		m.Stop()
	}
}
