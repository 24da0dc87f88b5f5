// Package location keeps the shell's address bar and history.
package location

import (
	"net/url"
	"sync"
)

// History is a thread-safe address with a back stack. Push and Replace are
// silent; Reload notifies the registered reload hook, which the shell uses to
// restart itself at the new address.
type History struct {
	mu       sync.Mutex
	current  *url.URL
	back     []*url.URL
	onReload func(*url.URL)
}

// New creates a History positioned at start.
func New(start *url.URL) *History {
	return &History{current: clone(start)}
}

// URL returns a copy of the current address.
func (h *History) URL() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.current)
}

// Push makes u the current address and remembers the previous one.
func (h *History) Push(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.back = append(h.back, h.current)
	h.current = clone(u)
}

// Replace rewrites the current entry in place.
func (h *History) Replace(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = clone(u)
}

// Back pops the previous address. It returns false at the start of history.
func (h *History) Back() (*url.URL, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.back) == 0 {
		return nil, false
	}
	h.current = h.back[len(h.back)-1]
	h.back = h.back[:len(h.back)-1]
	return clone(h.current), true
}

// Depth returns the number of entries behind the current one.
func (h *History) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.back)
}

// OnReload registers fn to be called after every Reload.
func (h *History) OnReload(fn func(*url.URL)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = fn
}

// Reload navigates to u as a full page load: history is kept, the current
// entry is pushed, and the reload hook runs outside the lock.
func (h *History) Reload(u *url.URL) {
	h.mu.Lock()
	h.back = append(h.back, h.current)
	h.current = clone(u)
	fn := h.onReload
	h.mu.Unlock()

	if fn != nil {
		fn(clone(u))
	}
}

func clone(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
