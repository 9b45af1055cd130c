package conversation

// SelectionSet is an ordered set of usernames. Order is the order in which
// names were first added and is used as the participant order of the
// expense.
type SelectionSet struct {
	names []string
}

// Toggle adds name when absent and removes it when present. It reports
// whether name is selected afterwards.
func (s *SelectionSet) Toggle(name string) bool {
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			return false
		}
	}
	s.names = append(s.names, name)
	return true
}

// Contains reports whether name is selected.
func (s *SelectionSet) Contains(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns a copy of the selection in order.
func (s *SelectionSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of selected names.
func (s *SelectionSet) Len() int { return len(s.names) }

// Empty reports whether nothing is selected.
func (s *SelectionSet) Empty() bool { return len(s.names) == 0 }
