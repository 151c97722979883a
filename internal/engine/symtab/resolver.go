package symtab

// query is one name being resolved plus the kinds it may bind to.
// Declarations rejected by match neither satisfy nor hide the lookup.
type query struct {
	name  string
	match func(*Declaration) bool
}

func anyDeclaration(*Declaration) bool { return true }

func ofKind(kind Kind) func(*Declaration) bool {
	return func(d *Declaration) bool { return d.Kind == kind }
}

// namespaceOrType accepts what may precede "::" in a qualified name.
func namespaceOrType(d *Declaration) bool {
	return d.Kind == KindNamespace || d.Kind.IsType()
}

// resolveIn computes the candidate contributed by one scope: its direct
// member if there is one, otherwise whatever its bases agree on.
func resolveIn(scope *Declaration, q query) (*Declaration, error) {
	if d := scope.contained.find(q.name, q.match); d != nil {
		return d, nil
	}
	if len(scope.parents) == 0 {
		return nil, nil
	}
	s := &inheritanceSearch{
		q:       q,
		virtual: make(map[*Declaration]bool),
		chain:   make(map[*Declaration]bool),
	}
	return s.searchBases(scope)
}

// inheritanceSearch walks the base-class DAG below one scope.
//
// A virtual base is one subobject no matter how many paths reach it, so it
// is searched at most once per search. chain holds the classes currently on
// the recursion path and detects inheritance cycles.
type inheritanceSearch struct {
	q       query
	virtual map[*Declaration]bool
	chain   map[*Declaration]bool
}

func (s *inheritanceSearch) search(class *Declaration) (*Declaration, error) {
	if d := class.contained.find(s.q.name, s.q.match); d != nil {
		return d, nil
	}
	return s.searchBases(class)
}

func (s *inheritanceSearch) searchBases(class *Declaration) (*Declaration, error) {
	s.chain[class] = true
	defer delete(s.chain, class)

	var found *Declaration
	for i, p := range class.parents {
		if p.Base == nil || repeatsEarlierParent(class.parents[:i], p) {
			continue
		}
		if s.chain[p.Base] {
			return nil, circularError(s.q.name, p.Base)
		}
		if p.Virtual {
			if s.virtual[p.Base] {
				continue
			}
			s.virtual[p.Base] = true
		}

		candidate, err := s.search(p.Base)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			continue
		}
		if found == nil {
			found = candidate
			continue
		}
		if found == candidate && sharedAcrossSubobjects(candidate) {
			continue
		}
		return nil, ambiguousError(s.q.name, []*Declaration{found, candidate})
	}
	return found, nil
}

// sharedAcrossSubobjects reports whether one declaration reached through
// distinct base subobjects still denotes a single entity.
func sharedAcrossSubobjects(d *Declaration) bool {
	return d.Static || d.Kind == KindEnumerator || d.Kind.IsType()
}

func repeatsEarlierParent(earlier []Parent, p Parent) bool {
	for _, e := range earlier {
		if e.Base == p.Base && e.Virtual == p.Virtual {
			return true
		}
	}
	return false
}
