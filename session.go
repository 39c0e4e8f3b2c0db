package aks

import (
	"context"
	"sync"
	"sync/atomic"
)

// Session ties one decoded image to its edit history and a Selector.
//
// Edits may come from any goroutine. Render processes the snapshot current
// at call time and discards the result if another edit landed meanwhile,
// so callers only ever display the latest edit.
type Session struct {
	raw      RawPixelData
	selector *Selector
	history  *History

	// mu orders edits: each one reads, pushes and bumps the generation
	// as one step.
	mu         sync.Mutex
	generation atomic.Uint64
}

// NewSession creates a session for raw at neutral defaults.
// The selector is shared and not closed by the session.
func NewSession(raw RawPixelData, sel *Selector) (*Session, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		raw:      raw,
		selector: sel,
		history:  NewHistory(NewPipeline()),
	}, nil
}

// Raw returns the decoded source image.
func (s *Session) Raw() RawPixelData { return s.raw }

// History returns the session's edit history.
func (s *Session) History() *History { return s.history }

// Pipeline returns a copy of the current edit state.
func (s *Session) Pipeline() Pipeline { return s.history.Current() }

// Generation returns a counter that increases with every edit, undo and
// redo.
func (s *Session) Generation() uint64 { return s.generation.Load() }

// Apply edits a copy of the current state and records it. The edit is
// rejected with ErrInvalidInput if the result does not validate.
// Concurrent Apply calls are serialized; edit runs with the session
// locked and must not call back into it.
func (s *Session) Apply(edit func(*Pipeline)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.history.Current()
	edit(&p)
	if err := p.Validate(); err != nil {
		return err
	}
	s.history.Push(p)
	s.generation.Add(1)
	return nil
}

// Undo steps back one edit.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.history.Undo(); err != nil {
		return err
	}
	s.generation.Add(1)
	return nil
}

// Redo steps forward one edit.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.history.Redo(); err != nil {
		return err
	}
	s.generation.Add(1)
	return nil
}

// Render processes the current state. It returns ErrStaleResult if the
// state changed before processing finished.
func (s *Session) Render(ctx context.Context) (*ProcessedImage, error) {
	s.mu.Lock()
	gen := s.generation.Load()
	p := s.history.Current()
	s.mu.Unlock()

	img, err := s.selector.ProcessPixels(ctx, s.raw, p.Adjustments, p.Crop)
	if err != nil {
		return nil, err
	}
	if s.generation.Load() != gen {
		Logger().Debug("aks: dropping stale render", "generation", gen)
		return nil, ErrStaleResult
	}
	return img, nil
}
