package store

// SetActiveView records which top-level view is being rendered. Navigation
// path-to-view mapping itself is owned by the routing layer.
func (s *Store) SetActiveView(view string) {
	s.mu.Lock()
	s.activeView = view
	s.mu.Unlock()
	s.notify()
}

// ActiveView returns the current top-level view name.
func (s *Store) ActiveView() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeView
}
