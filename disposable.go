package ikebana

import "context"

// Disposable is implemented by singletons that need cleanup when their
// injector closes.
//
//	type Pool struct{ db *sql.DB }
//
//	func (p *Pool) Close() error {
//	    return p.db.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is the context-aware variant of Disposable.
// Implementations should respect cancellation for graceful shutdown.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}
