package session

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/stormforge/stormforge/core"
)

// Func is an async unit of work: a plain Go function evaluated against the
// session that spawned it (Async, SpreadAsync, RunScenario all build one).
// Spec §9 notes that the source language's "~>" / "<~" macro sugar
// translates to "explicit async / await / call_traced calls" in a
// systems-language port; StormForge's translation additionally replaces
// the source's dynamic (module, function) name pair with a first-class Go
// function value, since Go has no equivalent runtime module/function
// lookup and passing funcs directly is the idiomatic Go shape.
type Func func(ctx context.Context, s *Session) (*Session, error)

var taskSeq int64

// TaskHandle is the spawned-task handle recorded in Session.AsyncTasks
// (spec §3). Awaiting it blocks until the child function returns.
type TaskHandle struct {
	Name string
	seq  int64
	done chan struct{}
	result *Session
	err    error
}

// Await blocks until the task completes or ctx is done, whichever first.
func (h *TaskHandle) Await(ctx context.Context) (*Session, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SpawnAsync starts fn as a structured-concurrency child of s: a linked
// goroutine whose lifetime is tracked under AsyncTasks[name] (spec §3,
// §5 "Async actions spawn child tasks linked to the parent"). The child
// receives s as its starting session so it sees everything the parent has
// accumulated so far, but any mutation it makes is invisible to the parent
// until AwaitAsync or DrainAsync merges it back in.
func (s *Session) SpawnAsync(ctx context.Context, name string, fn Func) *Session {
	h := &TaskHandle{Name: name, seq: atomic.AddInt64(&taskSeq, 1), done: make(chan struct{})}

	go func() {
		defer close(h.done)
		start := core.Timestamp()
		result, err := fn(ctx, s)
		elapsed := core.Elapsed(start)
		if result != nil {
			result = result.RecordAsyncMetric(name, elapsed)
		}
		h.result, h.err = result, err
	}()

	out := s.clone()
	tasks := make(map[string][]*TaskHandle, len(s.AsyncTasks))
	for k, v := range s.AsyncTasks {
		tasks[k] = append([]*TaskHandle{}, v...)
	}
	tasks[name] = append(tasks[name], h)
	out.AsyncTasks = tasks
	return out
}

// AwaitAsync waits for the oldest still-pending task registered under name
// and merges its resulting session into s (spec §4.7 Async: "The spawned
// worker returns its resulting session which is merged in on await").
// It is a no-op returning s unchanged if name has no pending tasks.
func (s *Session) AwaitAsync(ctx context.Context, name string) (*Session, error) {
	handles := s.AsyncTasks[name]
	if len(handles) == 0 {
		return s, nil
	}
	head, rest := handles[0], handles[1:]

	childSession, err := head.Await(ctx)

	out := s.clone()
	tasks := make(map[string][]*TaskHandle, len(s.AsyncTasks))
	for k, v := range s.AsyncTasks {
		tasks[k] = append([]*TaskHandle{}, v...)
	}
	if len(rest) == 0 {
		delete(tasks, name)
	} else {
		tasks[name] = rest
	}
	out.AsyncTasks = tasks

	if err != nil {
		return out, err
	}
	if childSession == nil {
		return out, nil
	}
	return mergeInto(out, childSession), nil
}

// DrainAsync awaits every remaining async task across every name, in the
// order they were spawned, merging each into s as it completes (spec
// §4.3 execute step 5: "for every entry in async_tasks, await(name) each
// task, merging its session"). It returns the first error encountered, if
// any, but still drains every handle so no goroutine is leaked.
func (s *Session) DrainAsync(ctx context.Context) (*Session, error) {
	type pending struct {
		name string
		h    *TaskHandle
	}
	var all []pending
	for name, handles := range s.AsyncTasks {
		for _, h := range handles {
			all = append(all, pending{name, h})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].h.seq < all[j].h.seq })

	cur := s
	var firstErr error
	for _, p := range all {
		next, err := cur.AwaitAsync(ctx, p.name)
		cur = next
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return cur, firstErr
}

// mergeInto folds child's metrics/results/errors/cookies into parent and
// returns the combined session, the "await" half of spec §4.9's merge
// semantics applied to one child rather than a worker pool.
func mergeInto(parent, child *Session) *Session {
	out := parent.clone()
	out.Metrics = mergeRaw(parent.Metrics, child.Metrics)
	out.Results = mergeResults(parent.Results, child.Results)
	out.Errors = mergeErrors(parent.Errors, child.Errors)
	out.Cookies = append(append([]string{}, parent.Cookies...), child.Cookies...)
	return out
}
