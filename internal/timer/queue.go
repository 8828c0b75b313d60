package timer

import (
	"container/heap"
	"time"

	"github.com/benbjohnson/clock"
)

// Handle identifies a scheduled task. The zero Handle is never issued.
type Handle uint64

type task struct {
	handle Handle
	due    time.Time
	seq    uint64
	fn     func()
	index  int
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue holds delayed callbacks until the owner drains them with RunDue.
// Nothing runs on a background goroutine: callbacks execute inside RunDue on
// the caller's goroutine, so a Cancel that returns before the next RunDue is
// final even for tasks whose deadline already passed. Queue is not safe for
// concurrent use.
type Queue struct {
	clk   clock.Clock
	tasks taskHeap
	byID  map[Handle]*task
	next  Handle
	seq   uint64
}

func New(clk clock.Clock) *Queue {
	if clk == nil {
		clk = clock.New()
	}
	return &Queue{clk: clk, byID: make(map[Handle]*task)}
}

// Clock returns the clock deadlines are measured against.
func (q *Queue) Clock() clock.Clock { return q.clk }

// Schedule runs fn once delay has elapsed, at the first RunDue after that.
// Negative delays are treated as zero.
func (q *Queue) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	q.next++
	q.seq++
	t := &task{handle: q.next, due: q.clk.Now().Add(delay), seq: q.seq, fn: fn}
	heap.Push(&q.tasks, t)
	q.byID[t.handle] = t
	return t.handle
}

// Cancel removes a pending task. It reports false for handles that already
// ran, were cancelled, or were never issued.
func (q *Queue) Cancel(h Handle) bool {
	t, ok := q.byID[h]
	if !ok {
		return false
	}
	delete(q.byID, h)
	heap.Remove(&q.tasks, t.index)
	return true
}

// CancelAll drops every pending task.
func (q *Queue) CancelAll() {
	q.tasks = q.tasks[:0]
	clear(q.byID)
}

// RunDue runs every task whose deadline is not after now, in deadline order,
// and returns how many ran. A task may schedule or cancel others; tasks it
// cancels do not run, and tasks it schedules run in this pass only if they
// are already due.
func (q *Queue) RunDue() int {
	now := q.clk.Now()
	ran := 0
	for len(q.tasks) > 0 {
		t := q.tasks[0]
		if t.due.After(now) {
			break
		}
		heap.Pop(&q.tasks)
		delete(q.byID, t.handle)
		t.fn()
		ran++
	}
	return ran
}

// Len is the number of pending tasks.
func (q *Queue) Len() int { return len(q.tasks) }

// NextDue reports the earliest pending deadline.
func (q *Queue) NextDue() (time.Time, bool) {
	if len(q.tasks) == 0 {
		return time.Time{}, false
	}
	return q.tasks[0].due, true
}
