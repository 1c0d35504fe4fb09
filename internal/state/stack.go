package state

// IncidentStack is a LIFO of free-text incident descriptions.
type IncidentStack struct {
	items []string
}

// NewIncidentStack returns an empty stack.
func NewIncidentStack() *IncidentStack {
	return &IncidentStack{}
}

// Push places text on top.
func (s *IncidentStack) Push(text string) {
	s.items = append(s.items, text)
}

// Pop removes and returns the top. ok is false when the stack is empty.
func (s *IncidentStack) Pop() (text string, ok bool) {
	n := len(s.items)
	if n == 0 {
		return "", false
	}
	text = s.items[n-1]
	s.items = s.items[:n-1]
	return text, true
}

// ViewMostRecentFirst returns the incidents top to bottom.
func (s *IncidentStack) ViewMostRecentFirst() []string {
	out := make([]string, len(s.items))
	for i, text := range s.items {
		out[len(s.items)-1-i] = text
	}
	return out
}

// PushOrder returns the incidents oldest first.
func (s *IncidentStack) PushOrder() []string {
	return cloneStrings(s.items)
}

// Len reports the stack depth.
func (s *IncidentStack) Len() int {
	return len(s.items)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
