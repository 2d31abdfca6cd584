package core

import "sync"

// Invoker spawns and tracks the goroutines a Context owns, so that
// Finalize can wait for all of them to drain before returning.
type Invoker interface {
	Spawn(f func())
	Join()
}

type waitGroupInvoker struct {
	group sync.WaitGroup
}

// NewInvoker returns the default, sync.WaitGroup-backed Invoker.
func NewInvoker() Invoker {
	return &waitGroupInvoker{}
}

func (w *waitGroupInvoker) Spawn(f func()) {
	w.group.Add(1)
	go func() {
		defer w.group.Done()
		f()
	}()
}

func (w *waitGroupInvoker) Join() {
	w.group.Wait()
}
