package session

import (
	"encoding/json"
	"maps"
)

// State is the selection, workflow mode and draft of one editing session.
// States are values: every transition returns a new State and never
// modifies the one it was given.
type State struct {
	Mode      Mode
	Selection Selection
	Draft     Draft
	// Errors maps draft field names to messages, from validation or from a
	// rejected mutation.
	Errors  map[string]string
	Version int
}

// Initial is the state of a fresh session.
func Initial() State {
	return State{Mode: ModeNone}
}

// next returns a copy of s with the version bumped. Callers replace the
// fields they change.
func (s State) next() State {
	c := s
	c.Version++
	return c
}

// withErrors returns s with errs attached to the draft.
func (s State) withErrors(errs map[string]string) State {
	c := s.next()
	c.Errors = maps.Clone(errs)
	return c
}

// idle returns the state after a commit, or after the draft is dropped
// with nothing selected.
func (s State) idle() State {
	c := s.next()
	c.Mode = ModeNone
	c.Selection = nil
	c.Draft = nil
	c.Errors = nil
	return c
}

type stateJSON struct {
	Mode      Mode              `json:"mode"`
	Selection Selection         `json:"selection"`
	Draft     *draftJSON        `json:"draft,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Version   int               `json:"version"`
}

type draftJSON struct {
	Kind   DraftKind `json:"kind"`
	Fields Draft     `json:"fields"`
}

// MarshalJSON tags the draft with its kind.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Mode:      s.Mode,
		Selection: s.Selection,
		Errors:    s.Errors,
		Version:   s.Version,
	}
	if out.Selection == nil {
		out.Selection = Selection{}
	}
	if s.Draft != nil {
		out.Draft = &draftJSON{Kind: s.Draft.Kind(), Fields: s.Draft}
	}
	return json.Marshal(out)
}
