package correlation

import "context"

// Task wraps a unit of work for dispatch to a worker pool or goroutine. The
// submitting unit's entries are captured at wrap time; when the wrapped
// function eventually runs it sees exactly that snapshot, and the worker's
// scope is cleared again when it returns, even on panic. A worker reused
// across tasks therefore never inherits a previous task's entries, and no
// entry leaks forward into the next task scheduled on the same worker.
//
// The returned function takes the worker's own context (carrying its
// cancellation and, for pooled workers, a reusable scope). Pass
// context.Background() when spawning a plain goroutine.
func Task(parent context.Context, fn func(context.Context)) func(context.Context) {
	snapshot := Snapshot(parent)
	return func(ctx context.Context) {
		scope := FromContext(ctx)
		if scope == nil {
			scope = NewScope()
			ctx = WithScope(ctx, scope)
		}
		scope.Restore(snapshot)
		defer scope.Clear()
		fn(ctx)
	}
}

// TaskErr is Task for error-returning work.
func TaskErr(parent context.Context, fn func(context.Context) error) func(context.Context) error {
	snapshot := Snapshot(parent)
	return func(ctx context.Context) error {
		scope := FromContext(ctx)
		if scope == nil {
			scope = NewScope()
			ctx = WithScope(ctx, scope)
		}
		scope.Restore(snapshot)
		defer scope.Clear()
		return fn(ctx)
	}
}

// Go runs fn on a new goroutine with the caller's entries copied in,
// detaching the work from the caller's cancellation.
func Go(ctx context.Context, fn func(context.Context)) {
	task := Task(ctx, fn)
	go task(context.Background())
}
