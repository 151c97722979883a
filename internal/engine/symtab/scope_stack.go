package symtab

// scopeStack mirrors the lexical nesting of one parse. Frame 0 is the
// compilation unit and is never removed.
type scopeStack struct {
	frames []*Declaration
}

func newScopeStack(root *Declaration) *scopeStack {
	return &scopeStack{frames: []*Declaration{root}}
}

func (s *scopeStack) push(d *Declaration) {
	s.frames = append(s.frames, d)
}

func (s *scopeStack) pop() (*Declaration, bool) {
	if len(s.frames) <= 1 {
		return nil, false
	}
	top := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

func (s *scopeStack) peek() *Declaration {
	return s.frames[len(s.frames)-1]
}

func (s *scopeStack) depth() int {
	return len(s.frames)
}

func (s *scopeStack) snapshot() []*Declaration {
	out := make([]*Declaration, len(s.frames))
	copy(out, s.frames)
	return out
}
