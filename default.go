package ikebana

import "sync/atomic"

// defaultInjector holds the process-wide default Injector.
var defaultInjector atomic.Pointer[Injector]

// SetDefault sets the default Injector used by Default, similar to
// slog.SetDefault. Pass nil to clear it.
func SetDefault(inj *Injector) {
	defaultInjector.Store(inj)
}

// Default returns the current default Injector, or nil if none was set.
func Default() *Injector {
	return defaultInjector.Load()
}
