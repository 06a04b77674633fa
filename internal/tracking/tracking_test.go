package tracking

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/imrishuroy/pizzafly-storefront/internal/order"
)

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock(now time.Time) *manualClock { return &manualClock{now: now} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		sort.Slice(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		var next *manualTimer
		for i, t := range c.timers {
			if t.stopped {
				continue
			}
			if !t.at.After(target) {
				next = t
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
			}
			break
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (r *recorder) Render(_ order.Order, s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *recorder) Stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stage(nil), r.stages...)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func orderAt(t time.Time) order.Order {
	return order.Order{ID: "PF-ABC123", CreatedAt: t.UnixMilli()}
}

func TestCurrentStage_Thresholds(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    Stage
	}{
		{-time.Minute, Received},
		{0, Received},
		{59 * time.Second, Received},
		{time.Minute, Preparing},
		{2*time.Minute + 59*time.Second, Preparing},
		{3 * time.Minute, Baking},
		{5 * time.Minute, OutForDelivery},
		{6 * time.Minute, Delivered},
		{90 * time.Minute, Delivered},
	}
	for _, c := range cases {
		if got := CurrentStage(base, base.Add(c.elapsed)); got != c.want {
			t.Fatalf("elapsed %v: got %s want %s", c.elapsed, got, c.want)
		}
	}
}

func TestCurrentStage_Monotonic(t *testing.T) {
	prev := -1
	for s := -30; s <= 420; s++ {
		i := CurrentStage(base, base.Add(time.Duration(s)*time.Second)).Index()
		if i < prev {
			t.Fatalf("stage went backwards at %ds", s)
		}
		prev = i
	}
}

func TestLabel(t *testing.T) {
	cases := map[Stage]string{
		Received:       "Received",
		OutForDelivery: "Out For Delivery",
		Delivered:      "Delivered",
	}
	for s, want := range cases {
		if got := s.Label(); got != want {
			t.Fatalf("%s: got %q want %q", s, got, want)
		}
	}
}

func TestIndicators(t *testing.T) {
	ind := Indicators(Baking)
	if len(ind) != len(Stages) {
		t.Fatalf("expected %d indicators, got %d", len(Stages), len(ind))
	}
	for i, in := range ind {
		want := i <= 2
		if in.Active != want {
			t.Fatalf("indicator %s active=%v want %v", in.Stage, in.Active, want)
		}
	}
	if Reached(Baking, Stage("bogus")) {
		t.Fatalf("unknown stage must not be reached")
	}
}

func TestResume_RendersUntilDelivered(t *testing.T) {
	clock := newManualClock(base)
	tr := NewTracker(clock, 15*time.Second, nil)
	rec := &recorder{}

	task := tr.Resume(orderAt(base), rec)
	if got := rec.Stages(); len(got) != 1 || got[0] != Received {
		t.Fatalf("expected an immediate Received render, got %v", got)
	}

	clock.Advance(10 * time.Minute)

	select {
	case <-task.Done():
	default:
		t.Fatalf("task should be done after delivery")
	}
	got := rec.Stages()
	if got[len(got)-1] != Delivered {
		t.Fatalf("last render: %s", got[len(got)-1])
	}
	// 0s..360s at 15s steps = 25 renders, then no more.
	if len(got) != 25 {
		t.Fatalf("expected 25 renders, got %d", len(got))
	}
	if clock.Pending() != 0 {
		t.Fatalf("no timer may remain after delivery")
	}
	clock.Advance(time.Hour)
	if len(rec.Stages()) != 25 {
		t.Fatalf("rendered after delivery")
	}
}

func TestResume_AlreadyDelivered(t *testing.T) {
	clock := newManualClock(base.Add(time.Hour))
	tr := NewTracker(clock, 0, nil)
	rec := &recorder{}

	task := tr.Resume(orderAt(base), rec)
	if task.Last() != Delivered {
		t.Fatalf("got %s", task.Last())
	}
	if clock.Pending() != 0 {
		t.Fatalf("delivered order must not schedule a re-check")
	}
}

func TestStop_CancelsPendingCheck(t *testing.T) {
	clock := newManualClock(base)
	tr := NewTracker(clock, 15*time.Second, nil)
	rec := &recorder{}

	task := tr.Resume(orderAt(base), rec)
	task.Stop()
	task.Stop()

	clock.Advance(10 * time.Minute)
	if n := len(rec.Stages()); n != 1 {
		t.Fatalf("expected no renders after Stop, got %d", n)
	}
	select {
	case <-task.Done():
	default:
		t.Fatalf("Done must close on Stop")
	}
}

func TestRegistry_ReplacesPreviousTask(t *testing.T) {
	clock := newManualClock(base)
	reg := NewRegistry(NewTracker(clock, 15*time.Second, nil))

	first := reg.Track("s1", orderAt(base), &recorder{})
	second := reg.Track("s1", orderAt(base), &recorder{})
	other := reg.Track("s2", orderAt(base), &recorder{})

	select {
	case <-first.Done():
	default:
		t.Fatalf("first task should be stopped")
	}
	if got, _ := reg.Get("s1"); got != second {
		t.Fatalf("registry should hold the latest task")
	}

	reg.StopAll()
	for _, task := range []*Task{second, other} {
		select {
		case <-task.Done():
		default:
			t.Fatalf("StopAll left a task running")
		}
	}
}

func TestRegistry_DropsDeliveredTasks(t *testing.T) {
	clock := newManualClock(base)
	reg := NewRegistry(NewTracker(clock, 15*time.Second, nil))

	tasks := make([]*Task, 0, 100)
	for i := range 100 {
		tasks = append(tasks, reg.Track(fmt.Sprintf("scope-%d", i), orderAt(base), nil))
	}
	if reg.Len() != 100 {
		t.Fatalf("expected 100 running tasks, got %d", reg.Len())
	}

	clock.Advance(7 * time.Minute)
	for _, task := range tasks {
		<-task.Done()
	}
	if reg.Len() != 0 {
		t.Fatalf("delivered tasks leaked: %d left", reg.Len())
	}
	if _, ok := reg.Get("scope-0"); ok {
		t.Fatalf("Get should not return a delivered task")
	}
}

func TestRegistry_AlreadyDeliveredIsNotKept(t *testing.T) {
	clock := newManualClock(base.Add(10 * time.Minute))
	reg := NewRegistry(NewTracker(clock, 15*time.Second, nil))

	running := reg.Track("s1", orderAt(base.Add(9*time.Minute)), nil)
	done := reg.Track("s1", orderAt(base), nil)

	select {
	case <-done.Done():
	default:
		t.Fatalf("delivered order should finish on its first check")
	}
	select {
	case <-running.Done():
	default:
		t.Fatalf("previous task should be stopped")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}
