package core

import "pkt.systems/qult/schema"

// Suggestion is a pending autocomplete value and the caret to place when accepted.
type Suggestion struct {
	Value  string
	Cursor int
}

// State holds the per-session flags shared by the controller and the router.
// It is owned by the session loop and is not safe for concurrent use.
type State struct {
	mode       schema.Mode
	identity   string
	suggestion *Suggestion
	pageNav    *PagedBlock
}

// NewState returns the initial state: normal mode, default identity.
func NewState() *State {
	return &State{mode: schema.ModeNormal, identity: schema.DefaultIdentity}
}

func (s *State) Mode() schema.Mode {
	return s.mode
}

// EnterPasswordPrompt switches to masked input.
func (s *State) EnterPasswordPrompt() {
	s.mode = schema.ModePasswordPrompt
	s.suggestion = nil
}

// ExitPasswordPrompt returns to normal mode and reports whether the mode changed.
func (s *State) ExitPasswordPrompt() bool {
	if s.mode != schema.ModePasswordPrompt {
		return false
	}
	s.mode = schema.ModeNormal
	return true
}

func (s *State) Identity() string {
	return s.identity
}

func (s *State) SetIdentity(identity string) {
	if identity == "" {
		identity = schema.DefaultIdentity
	}
	s.identity = identity
}

// Suggestion returns the pending suggestion, if any.
func (s *State) Suggestion() (Suggestion, bool) {
	if s.suggestion == nil {
		return Suggestion{}, false
	}
	return *s.suggestion, true
}

func (s *State) SetSuggestion(suggestion Suggestion) {
	s.suggestion = &suggestion
}

func (s *State) ClearSuggestion() {
	s.suggestion = nil
}

// PageNav returns the paged block targeted by arrow keys, if any.
func (s *State) PageNav() (*PagedBlock, bool) {
	return s.pageNav, s.pageNav != nil
}

func (s *State) EnterPageNav(block *PagedBlock) {
	s.pageNav = block
}

func (s *State) ExitPageNav() {
	s.pageNav = nil
}
