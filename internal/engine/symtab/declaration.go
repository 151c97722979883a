package symtab

import "strings"

// Parent is one direct base-class link of a Declaration.
type Parent struct {
	Base    *Declaration
	Virtual bool
}

// Declaration is one named entity. When it names a namespace, class,
// enumeration, function or block it also carries the scope of the
// declarations nested in it.
//
// Declarations are compared by identity only; two declarations with the
// same name and kind are still different entities.
type Declaration struct {
	Name string
	Kind Kind

	// Static marks static members, which stay unambiguous when reached
	// through several base subobjects.
	Static bool
	// Scoped marks an enum class whose enumerators stay in its own scope.
	Scoped bool
	// TypeDecl is the declared type, e.g. A for "A a;".
	TypeDecl *Declaration
	// Data is opaque caller payload such as a source location.
	Data any

	id         uint64
	containing *Declaration
	contained  *containment
	parents    []Parent
}

func NewDeclaration(name string, kind Kind) *Declaration {
	return &Declaration{Name: name, Kind: kind}
}

// ID is the table-assigned identity, zero until the declaration is added
// to or pushed on a table.
func (d *Declaration) ID() uint64 { return d.id }

// ContainingScope returns the scope this declaration was declared in.
func (d *Declaration) ContainingScope() *Declaration { return d.containing }

// AddParent appends a direct base. Use Table.AddParent when the link
// must be undoable.
func (d *Declaration) AddParent(base *Declaration, virtual bool) {
	d.parents = append(d.parents, Parent{Base: base, Virtual: virtual})
}

func (d *Declaration) Parents() []Parent {
	if len(d.parents) == 0 {
		return nil
	}
	out := make([]Parent, len(d.parents))
	copy(out, d.parents)
	return out
}

// Member returns the current direct binding of name in this scope.
func (d *Declaration) Member(name string) (*Declaration, bool) {
	if d.contained == nil {
		return nil, false
	}
	m, ok := d.contained.byName[name]
	return m, ok
}

// Tag returns the class, union or enumeration bound to name in this scope,
// even when an ordinary declaration of the same name hides it.
func (d *Declaration) Tag(name string) (*Declaration, bool) {
	if d.contained == nil {
		return nil, false
	}
	t, ok := d.contained.tags[name]
	return t, ok
}

// Members returns the current bindings in first-declaration order.
func (d *Declaration) Members() []*Declaration {
	return d.contained.all()
}

func (d *Declaration) MemberCount() int {
	return d.contained.len()
}

// QualifiedName joins the names of the enclosing scopes with "::".
// Anonymous scopes are skipped.
func (d *Declaration) QualifiedName() string {
	parts := make([]string, 0, 4)
	seen := make(map[*Declaration]bool)
	for cur := d; cur != nil && !seen[cur]; cur = cur.containing {
		seen[cur] = true
		if cur.Name != "" {
			parts = append(parts, cur.Name)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

func (d *Declaration) String() string {
	if d == nil {
		return "<nil>"
	}
	name := d.QualifiedName()
	if name == "" {
		name = "<anonymous>"
	}
	return d.Kind.String() + " " + name
}

func (d *Declaration) scope() *containment {
	if d.contained == nil {
		d.contained = newContainment()
	}
	return d.contained
}
