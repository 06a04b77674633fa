package tracking

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
)

// DefaultInterval is the delay between stage re-checks.
const DefaultInterval = 15 * time.Second

// Renderer receives every computed stage.
type Renderer interface {
	Render(o order.Order, s Stage)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(o order.Order, s Stage)

func (f RenderFunc) Render(o order.Order, s Stage) { f(o, s) }

// Tracker starts re-check loops for orders.
type Tracker struct {
	clock    Clock
	interval time.Duration
	log      *zap.Logger
}

// NewTracker returns a Tracker. A nil clock is the system clock and a
// non-positive interval is DefaultInterval.
func NewTracker(clock Clock, interval time.Duration, log *zap.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{clock: clock, interval: interval, log: logging.OrNop(log)}
}

// Stage computes o's stage at the tracker's current time.
func (t *Tracker) Stage(o order.Order) Stage {
	return CurrentStage(o.Created(), t.clock.Now())
}

// Resume renders o's stage now and then once per interval until the order is
// delivered. The returned Task stops for good at delivery or on Stop.
func (t *Tracker) Resume(o order.Order, r Renderer) *Task {
	return t.resume(o, r, nil)
}

func (t *Tracker) resume(o order.Order, r Renderer, onFinish func(*Task)) *Task {
	task := &Task{tracker: t, order: o, renderer: r, onFinish: onFinish, done: make(chan struct{})}
	task.tick()
	return task
}

// Task is one order's re-check loop.
type Task struct {
	tracker  *Tracker
	order    order.Order
	renderer Renderer
	onFinish func(*Task)

	mu      sync.Mutex
	timer   Timer
	last    Stage
	stopped bool
	done    chan struct{}
}

func (k *Task) tick() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}
	k.timer = nil
	k.mu.Unlock()

	stage := k.tracker.Stage(k.order)
	if k.renderer != nil {
		k.renderer.Render(k.order, stage)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	if stage != k.last {
		k.tracker.log.Info("order stage",
			zap.String("order_id", k.order.ID),
			zap.String("stage", string(stage)))
	}
	k.last = stage
	if stage.Terminal() {
		k.finish()
		return
	}
	k.timer = k.tracker.clock.AfterFunc(k.tracker.interval, k.tick)
}

// Stop cancels any pending re-check. It is safe to call more than once.
func (k *Task) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	if k.timer != nil {
		k.timer.Stop()
		k.timer = nil
	}
	k.finish()
}

// finish must be called with mu held.
func (k *Task) finish() {
	k.stopped = true
	close(k.done)
	if k.onFinish != nil {
		k.onFinish(k)
	}
}

// Done is closed once the task will never re-check again.
func (k *Task) Done() <-chan struct{} { return k.done }

// Last is the most recently rendered stage.
func (k *Task) Last() Stage {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.last
}

// OrderID is the tracked order's ID.
func (k *Task) OrderID() string { return k.order.ID }

// Registry keeps at most one running Task per storefront scope; tracking a new
// order for a scope stops the previous one. Finished tasks are dropped.
type Registry struct {
	tracker *Tracker
	mu      sync.Mutex
	tasks   map[string]*Task
}

// NewRegistry returns an empty Registry using tracker.
func NewRegistry(tracker *Tracker) *Registry {
	return &Registry{tracker: tracker, tasks: map[string]*Task{}}
}

// Track resumes tracking o for scope.
func (r *Registry) Track(scope string, o order.Order, rend Renderer) *Task {
	task := r.tracker.resume(o, rend, func(t *Task) { r.release(scope, t) })

	r.mu.Lock()
	prev := r.tasks[scope]
	select {
	case <-task.Done():
		// already delivered on the first check
		delete(r.tasks, scope)
	default:
		r.tasks[scope] = task
	}
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	return task
}

// Get returns the scope's task, if any.
func (r *Registry) Get(scope string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[scope]
	return t, ok
}

// Len is the number of running tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// release drops t if it is still scope's task. Task.finish calls it with the
// task's mutex held, so it must not call back into the task.
func (r *Registry) release(scope string, t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tasks[scope] == t {
		delete(r.tasks, scope)
	}
}

// StopAll cancels every task, for shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = map[string]*Task{}
	r.mu.Unlock()
	for _, t := range tasks {
		t.Stop()
	}
}

// LogRenderer logs each rendered stage with its display label.
func LogRenderer(log *zap.Logger) Renderer {
	log = logging.OrNop(log)
	return RenderFunc(func(o order.Order, s Stage) {
		log.Debug("tracking render",
			zap.String("order_id", o.ID),
			zap.String("status", s.Label()))
	})
}
