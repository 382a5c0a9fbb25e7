package theme

import "sync"

// ManualAppearance is an Appearance whose state is pushed in from outside,
// e.g. by the browser reporting a prefers-color-scheme change.
type ManualAppearance struct {
	mu        sync.Mutex
	dark      bool
	nextID    int
	listeners map[int]func(bool)
}

func NewManualAppearance(dark bool) *ManualAppearance {
	return &ManualAppearance{dark: dark, listeners: make(map[int]func(bool))}
}

func (a *ManualAppearance) Dark() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dark
}

// SetDark records the new scheme and notifies listeners if it changed.
func (a *ManualAppearance) SetDark(dark bool) {
	a.mu.Lock()
	if a.dark == dark {
		a.mu.Unlock()
		return
	}
	a.dark = dark
	fns := make([]func(bool), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(dark)
	}
}

func (a *ManualAppearance) Subscribe(fn func(dark bool)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}
