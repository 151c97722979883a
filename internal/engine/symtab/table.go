package symtab

// Table is the declaration symbol table of one compilation unit.
//
// A Table is driven by a single parse: the parser pushes a scope when it
// enters a namespace, class or function body, adds each declared name,
// looks up each referenced name and pops the scope on exit. It is not safe
// for concurrent use; separate compilation units use separate tables.
type Table struct {
	root   *Declaration
	stack  *scopeStack
	nextID uint64
	undo   undoLog
}

// New creates a table whose only scope is the compilation unit.
func New() *Table {
	root := NewDeclaration("", KindNamespace)
	t := &Table{root: root, stack: newScopeStack(root)}
	t.register(root)
	return t
}

// CompilationUnit returns the root scope.
func (t *Table) CompilationUnit() *Declaration { return t.root }

func (t *Table) register(d *Declaration) {
	if d.id == 0 {
		t.nextID++
		d.id = t.nextID
	}
}

// AddDeclaration binds d in the current scope under d.Name and records the
// current scope as its containing scope. A previous binding of the same
// name is replaced; declarations returned by earlier lookups stay valid.
//
// An enumerator added while an unscoped enumeration is current is bound in
// the scope enclosing the enumeration instead and typed by it.
func (t *Table) AddDeclaration(d *Declaration) {
	scope := t.stack.peek()
	prevType := d.TypeDecl
	if d.Kind == KindEnumerator && scope.Kind == KindEnumeration {
		if d.TypeDecl == nil {
			d.TypeDecl = scope
		}
		if !scope.Scoped && scope.containing != nil {
			scope = scope.containing
		}
	}
	t.bind(scope, d, prevType)
}

// AddDeclarationTo binds d directly into scope, for declarations whose
// scope is not the one being parsed, such as friends or out-of-line
// members.
func (t *Table) AddDeclarationTo(scope, d *Declaration) {
	t.bind(scope, d, d.TypeDecl)
}

// bind records prevType so a rollback can undo typing done on the way in.
func (t *Table) bind(scope, d, prevType *Declaration) {
	t.register(d)
	prevContaining := d.containing
	b := scope.scope().bind(d)
	d.containing = scope
	t.undo.record(&addDeclarationCommand{scope: scope, decl: d, binding: b, containing: prevContaining, typeDecl: prevType})
}

// AddParent appends base to derived's base list through the table so the
// link can be rolled back.
func (t *Table) AddParent(derived, base *Declaration, virtual bool) {
	derived.AddParent(base, virtual)
	t.undo.record(&addParentCommand{derived: derived, index: len(derived.parents) - 1})
}

// Push makes d the current scope. Its containing scope is set to the
// previous current scope only when it has none yet, so a declaration added
// earlier keeps the scope it was declared in.
func (t *Table) Push(d *Declaration) {
	t.register(d)
	top := t.stack.peek()
	if d.containing == nil && d != t.root && d != top {
		d.containing = top
	}
	t.stack.push(d)
}

// Pop removes and returns the current scope. Popping the compilation unit
// means push and pop calls are unbalanced, which is a bug in the caller.
func (t *Table) Pop() *Declaration {
	d, ok := t.stack.pop()
	if !ok {
		panic("symtab: pop of the compilation unit scope (unbalanced push/pop)")
	}
	return d
}

// Peek returns the current scope.
func (t *Table) Peek() *Declaration { return t.stack.peek() }

// Depth is the number of open scopes including the compilation unit.
func (t *Table) Depth() int { return t.stack.depth() }

// Scopes returns the open scopes, compilation unit first.
func (t *Table) Scopes() []*Declaration { return t.stack.snapshot() }

// Lookup resolves name from the current scope outward through the
// containing scopes. In each scope a direct member hides inherited ones and
// inherited ones hide enclosing scopes; the first scope that yields a
// declaration or an ambiguity decides the result.
func (t *Table) Lookup(name string) (*Declaration, error) {
	return t.lookupFrom(t.stack.peek(), query{name: name, match: anyDeclaration})
}

// LookupElaborated resolves an elaborated type specifier such as
// "struct stat": only declarations of kind are considered.
func (t *Table) LookupElaborated(kind Kind, name string) (*Declaration, error) {
	return t.lookupFrom(t.stack.peek(), query{name: name, match: ofKind(kind)})
}

// LookupNestedNameSpecifier resolves the name preceding "::", which only
// binds to namespaces and types.
func (t *Table) LookupNestedNameSpecifier(name string) (*Declaration, error) {
	return t.lookupFrom(t.stack.peek(), query{name: name, match: namespaceOrType})
}

// QualifiedLookup resolves name as a member of the current scope: its
// direct members and bases are searched, enclosing scopes are not.
func (t *Table) QualifiedLookup(name string) (*Declaration, error) {
	return t.LookupIn(t.stack.peek(), name)
}

// LookupIn resolves name as a member of scope without touching the stack.
func (t *Table) LookupIn(scope *Declaration, name string) (*Declaration, error) {
	d, err := resolveIn(scope, query{name: name, match: anyDeclaration})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, notFoundError(name)
	}
	return d, nil
}

// LookupMemberForDefinition finds the declaration an out-of-line
// definition refers to; only direct members of the current scope qualify.
func (t *Table) LookupMemberForDefinition(name string) (*Declaration, error) {
	if d, ok := t.stack.peek().Member(name); ok {
		return d, nil
	}
	return nil, notFoundError(name)
}

func (t *Table) lookupFrom(scope *Declaration, q query) (*Declaration, error) {
	seen := make(map[*Declaration]bool)
	for s := scope; s != nil && !seen[s]; s = s.containing {
		seen[s] = true
		d, err := resolveIn(s, q)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, notFoundError(q.name)
}
