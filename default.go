package locator

import "sync"

var (
	// defaultLocator holds the process-wide Locator.
	defaultLocator *Locator
	defaultMu      sync.Mutex
)

// SetDefault sets the Locator returned by Default.
// This is similar to slog.SetDefault. Pass nil to have Default build a new
// one from the registered modules on its next call.
func SetDefault(l *Locator) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLocator = l
}

// Default returns the process-wide Locator. Unless SetDefault was called, it
// is built on first use from every module registered with RegisterModule.
func Default() *Locator {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLocator == nil {
		defaultLocator = New(WithRegisteredModules())
	}
	return defaultLocator
}
