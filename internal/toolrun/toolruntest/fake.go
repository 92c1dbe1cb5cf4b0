// Package toolruntest provides a scripted in-memory runner for tests.
package toolruntest

import (
	"context"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	Tool string
	Args []string
}

// Fake records every invocation and answers from per-tool scripts.
// A tool with a Hook runs the hook; otherwise Errs then Status decide the
// result, and an unscripted tool exits 0.
type Fake struct {
	Status map[string]int
	Errs   map[string]error
	Hooks  map[string]func(args []string) (int, error)

	mu    sync.Mutex
	calls []Call
}

func New() *Fake {
	return &Fake{
		Status: map[string]int{},
		Errs:   map[string]error{},
		Hooks:  map[string]func(args []string) (int, error){},
	}
}

func (f *Fake) Invoke(_ context.Context, tool string, args []string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Tool: tool, Args: append([]string(nil), args...)})
	hook := f.Hooks[tool]
	err := f.Errs[tool]
	status := f.Status[tool]
	f.mu.Unlock()

	if hook != nil {
		return hook(args)
	}
	if err != nil {
		return -1, err
	}
	return status, nil
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Tools returns the invoked tool names in order.
func (f *Fake) Tools() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Tool
	}
	return out
}

// Count returns how many times tool was invoked.
func (f *Fake) Count(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Tool == tool {
			n++
		}
	}
	return n
}
