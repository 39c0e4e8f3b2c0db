package aks

import "sync"

// History is an append-only list of pipeline snapshots with a cursor.
//
// Push after Undo discards the redo branch. Snapshots are deep copies, so
// callers may keep mutating the Pipeline they pushed.
//
// History is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Pipeline
	cursor  int
}

// NewHistory creates a history whose first entry is initial.
func NewHistory(initial Pipeline) *History {
	return &History{entries: []Pipeline{initial.clone()}}
}

// Push records p as the newest entry and moves the cursor to it.
func (h *History) Push(p Pipeline) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.cursor+1], p.clone())
	h.cursor = len(h.entries) - 1
}

// Current returns a copy of the entry under the cursor.
func (h *History) Current() Pipeline {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor].clone()
}

// Undo moves the cursor back one entry and returns it.
func (h *History) Undo() (Pipeline, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == 0 {
		return Pipeline{}, ErrNothingToUndo
	}
	h.cursor--
	return h.entries[h.cursor].clone(), nil
}

// Redo moves the cursor forward one entry and returns it.
func (h *History) Redo() (Pipeline, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == len(h.entries)-1 {
		return Pipeline{}, ErrNothingToRedo
	}
	h.cursor++
	return h.entries[h.cursor].clone(), nil
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Len returns the number of entries, including the redo branch.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
