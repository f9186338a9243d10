package container

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskID identifies one unit of concurrent work.
type TaskID = uuid.UUID

// TaskIdentifier reports which task a context belongs to. The default
// implementation reads the id stored by WithTask; replace it with
// SetTaskIdentifier to bind task scopes to another notion of identity
// (a request id, a job id, ...).
type TaskIdentifier interface {
	CurrentTask(ctx context.Context) (TaskID, bool)
}

type taskKey struct{}

// WithTask returns a child of ctx that starts a new task.
func WithTask(ctx context.Context) context.Context {
	return context.WithValue(ctx, taskKey{}, uuid.New())
}

// TaskFrom returns the task id stored in ctx by WithTask.
func TaskFrom(ctx context.Context) (TaskID, bool) {
	id, ok := ctx.Value(taskKey{}).(TaskID)
	return id, ok
}

type contextIdentifier struct{}

func (contextIdentifier) CurrentTask(ctx context.Context) (TaskID, bool) {
	return TaskFrom(ctx)
}

var identifier atomic.Pointer[TaskIdentifier]

func init() {
	var ti TaskIdentifier = contextIdentifier{}
	identifier.Store(&ti)
}

// SetTaskIdentifier replaces how task identity is derived from a context.
// A nil identifier restores the default.
func SetTaskIdentifier(ti TaskIdentifier) {
	if ti == nil {
		ti = contextIdentifier{}
	}
	identifier.Store(&ti)
}

func currentTask(ctx context.Context) (TaskID, bool) {
	if ctx == nil {
		return TaskID{}, false
	}
	return (*identifier.Load()).CurrentTask(ctx)
}

// RunTask runs fn inside a new task and tears the task's scope down when fn
// returns, whatever handles are still outstanding.
func RunTask(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx = WithTask(ctx)
	if id, ok := currentTask(ctx); ok {
		defer tasks.end(id)
	}
	return fn(ctx)
}

// Go runs fn as a new task on its own goroutine. The returned channel
// receives fn's error and is then closed.
func Go(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- RunTask(ctx, fn)
	}()
	return errc
}

// LiveTaskScopes returns how many task scopes currently exist.
func LiveTaskScopes() int {
	return tasks.len()
}

// taskEntry is one task's store plus the number of live handles on it.
type taskEntry struct {
	refs int
	c    *Container
}

type taskTable struct {
	mu      sync.Mutex
	entries map[TaskID]*taskEntry
}

var tasks = &taskTable{entries: make(map[TaskID]*taskEntry)}

// acquire returns the task's container, creating it if needed, and counts
// one more reference.
func (t *taskTable) acquire(id TaskID) *Container {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &taskEntry{c: newContainer()}
		t.entries[id] = e
	}
	e.refs++
	live := len(t.entries)
	t.mu.Unlock()

	if !ok {
		observer().ObserveTaskScopes(live)
	}
	return e.c
}

// retain adds a reference only if c is still the task's live container.
func (t *taskTable) retain(id TaskID, c *Container) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.c != c {
		return false
	}
	e.refs++
	return true
}

// release drops one reference. References to a container that was already
// torn down are ignored.
func (t *taskTable) release(id TaskID, c *Container) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || e.c != c {
		t.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		t.mu.Unlock()
		return
	}
	delete(t.entries, id)
	live := len(t.entries)
	t.mu.Unlock()

	observer().ObserveTaskScopes(live)
	logger().Debug("task scope released", zap.Stringer("task", id))
}

// end removes the task's scope when the task completes.
func (t *taskTable) end(id TaskID) {
	t.mu.Lock()
	_, ok := t.entries[id]
	delete(t.entries, id)
	live := len(t.entries)
	t.mu.Unlock()

	if ok {
		observer().ObserveTaskScopes(live)
		logger().Debug("task scope ended", zap.Stringer("task", id))
	}
}

// peek returns a non-owning view of the ctx's task scope, or nil.
func (t *taskTable) peek(ctx context.Context) *Scope {
	id, ok := currentTask(ctx)
	if !ok {
		return nil
	}
	t.mu.Lock()
	e, ok := t.entries[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return &Scope{kind: KindTask, id: id, c: e.c}
}

func (t *taskTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// taskRef is the reference one handle holds. It lives apart from the Scope
// so the GC cleanup can run after the handle itself is gone.
type taskRef struct {
	id       TaskID
	c        *Container
	released atomic.Bool
}

func (r *taskRef) release() {
	if r.released.CompareAndSwap(false, true) {
		tasks.release(r.id, r.c)
	}
}
