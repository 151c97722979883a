package symtab

import (
	"testing"
)

func TestAddDeclaration_BindsInCurrentScope(t *testing.T) {
	table := New()
	x := NewDeclaration("x", KindVariable)
	table.AddDeclaration(x)

	root := table.CompilationUnit()
	if table.Peek() != root {
		t.Fatal("expected the compilation unit to be the current scope")
	}
	if root.MemberCount() != 1 {
		t.Fatalf("expected one member in the compilation unit, got %d", root.MemberCount())
	}
	if got, ok := root.Member("x"); !ok || got != x {
		t.Fatalf("expected x to be bound in the compilation unit, got %v", got)
	}
	if x.ContainingScope() != root {
		t.Fatalf("expected containing scope to be the compilation unit, got %v", x.ContainingScope())
	}
	if x.ID() == 0 || x.ID() == root.ID() {
		t.Fatalf("expected a fresh id, got %d (root %d)", x.ID(), root.ID())
	}
}

func TestAddDeclaration_LastWriteWins(t *testing.T) {
	table := New()
	first := NewDeclaration("x", KindVariable)
	second := NewDeclaration("x", KindVariable)
	other := NewDeclaration("y", KindVariable)

	table.AddDeclaration(first)
	table.AddDeclaration(other)
	looked, err := table.Lookup("x")
	if err != nil || looked != first {
		t.Fatalf("expected first x, got %v (%v)", looked, err)
	}

	table.AddDeclaration(second)
	got, err := table.Lookup("x")
	if err != nil || got != second {
		t.Fatalf("expected second x after rebinding, got %v (%v)", got, err)
	}
	if looked.Name != "x" || looked.ContainingScope() != table.CompilationUnit() {
		t.Fatal("expected earlier lookup result to stay valid")
	}

	members := table.CompilationUnit().Members()
	if len(members) != 2 || members[0] != second || members[1] != other {
		t.Fatalf("expected rebinding to keep the original key position, got %v", members)
	}
}

func TestLookup_NotFoundIsIdempotent(t *testing.T) {
	table := New()
	table.AddDeclaration(NewDeclaration("x", KindVariable))
	cls := NewDeclaration("C", KindClass)
	table.AddDeclaration(cls)
	table.Push(cls)

	for i := 0; i < 3; i++ {
		d, err := table.Lookup("boo")
		if d != nil {
			t.Fatalf("expected no declaration, got %v", d)
		}
		if !IsNotFound(err) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	}
	if table.Depth() != 2 || table.Peek() != cls {
		t.Fatal("expected lookup to leave the scope stack untouched")
	}
	if table.CompilationUnit().MemberCount() != 2 || cls.MemberCount() != 0 {
		t.Fatal("expected lookup to leave the containment indexes untouched")
	}
}

func TestPushPop(t *testing.T) {
	table := New()
	pushing := NewDeclaration("class", KindClass)
	if pushing.ContainingScope() != nil {
		t.Fatal("expected a fresh declaration to have no containing scope")
	}

	table.Push(pushing)
	if table.Peek() != pushing {
		t.Fatal("expected pushed declaration to be current")
	}
	if pushing.ContainingScope() != table.CompilationUnit() {
		t.Fatal("expected push to record the previous scope as containing scope")
	}

	popped := table.Pop()
	if popped != pushing {
		t.Fatalf("expected to pop %v, got %v", pushing, popped)
	}
	if table.Peek() != table.CompilationUnit() {
		t.Fatal("expected the compilation unit to be current after unwinding")
	}
}

func TestPush_KeepsContainingScopeFromAdd(t *testing.T) {
	table := New()
	ns := NewDeclaration("ns", KindNamespace)
	table.AddDeclaration(ns)
	table.Push(ns)
	cls := NewDeclaration("C", KindClass)
	table.AddDeclaration(cls)
	table.Pop()

	other := NewDeclaration("other", KindNamespace)
	table.AddDeclaration(other)
	table.Push(other)
	table.Push(cls)
	if cls.ContainingScope() != ns {
		t.Fatalf("expected containing scope to stay ns, got %v", cls.ContainingScope())
	}
	table.Pop()
	table.Pop()
}

func TestPop_CompilationUnitPanics(t *testing.T) {
	table := New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected popping the compilation unit to panic")
		}
	}()
	table.Pop()
}

func TestPushPop_BalancedSequenceLimitsVisibility(t *testing.T) {
	table := New()
	ns := NewDeclaration("ns", KindNamespace)
	table.AddDeclaration(ns)
	table.Push(ns)

	fn := NewDeclaration("f", KindFunction)
	table.AddDeclaration(fn)
	table.Push(fn)
	local := NewDeclaration("local", KindVariable)
	table.AddDeclaration(local)

	block := NewDeclaration("", KindBlock)
	table.Push(block)
	if got, err := table.Lookup("local"); err != nil || got != local {
		t.Fatalf("expected local to be visible from a nested block, got %v (%v)", got, err)
	}
	table.Pop()
	table.Pop()

	if _, err := table.Lookup("local"); !IsNotFound(err) {
		t.Fatalf("expected local to be invisible after leaving f, got %v", err)
	}
	if got, err := table.Lookup("f"); err != nil || got != fn {
		t.Fatalf("expected f to stay visible in ns, got %v (%v)", got, err)
	}
	table.Pop()

	if table.Peek() != table.CompilationUnit() || table.Depth() != 1 {
		t.Fatal("expected full unwind to reach the compilation unit")
	}
	if _, err := table.Lookup("f"); !IsNotFound(err) {
		t.Fatalf("expected f to be invisible at file scope, got %v", err)
	}
}

func TestHide(t *testing.T) {
	table := New()
	firstX := NewDeclaration("x", KindVariable)
	table.AddDeclaration(firstX)

	cls := NewDeclaration("class", KindClass)
	table.AddDeclaration(cls)
	table.Push(cls)

	if look, _ := table.Lookup("x"); look != firstX {
		t.Fatalf("expected outer x, got %v", look)
	}

	secondX := NewDeclaration("x", KindVariable)
	table.AddDeclaration(secondX)
	if look, _ := table.Lookup("x"); look != secondX {
		t.Fatalf("expected inner x to hide outer x, got %v", look)
	}

	table.Pop()
	if look, _ := table.Lookup("x"); look != firstX {
		t.Fatalf("expected outer x after pop, got %v", look)
	}
}

func TestContainingScopeLookup(t *testing.T) {
	table := New()
	x := NewDeclaration("x", KindVariable)
	cls := NewDeclaration("class", KindClass)
	table.AddDeclaration(x)
	table.AddDeclaration(cls)
	table.Push(cls)

	look, err := table.Lookup("x")
	if err != nil {
		t.Fatalf("lookup x: %v", err)
	}
	if look != x {
		t.Fatalf("expected x from the containing scope, got %v", look)
	}
}

func TestQualifiedName(t *testing.T) {
	table := New()
	ns := NewDeclaration("ns", KindNamespace)
	table.AddDeclaration(ns)
	table.Push(ns)
	cls := NewDeclaration("Widget", KindClass)
	table.AddDeclaration(cls)
	table.Push(cls)
	block := NewDeclaration("", KindBlock)
	table.Push(block)
	m := NewDeclaration("size", KindVariable)
	table.AddDeclaration(m)

	tests := []struct {
		decl *Declaration
		want string
	}{
		{table.CompilationUnit(), ""},
		{ns, "ns"},
		{cls, "ns::Widget"},
		{m, "ns::Widget::size"},
	}
	for _, tt := range tests {
		if got := tt.decl.QualifiedName(); got != tt.want {
			t.Errorf("QualifiedName() = %q, want %q", got, tt.want)
		}
	}
	if got := m.String(); got != "variable ns::Widget::size" {
		t.Errorf("String() = %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind                   Kind
		classLike, tag, isType bool
		scope                  bool
	}{
		{KindClass, true, true, true, true},
		{KindUnion, true, true, true, true},
		{KindEnumeration, false, true, true, true},
		{KindTypedef, false, false, true, false},
		{KindNamespace, false, false, false, true},
		{KindVariable, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if tt.kind.IsClassLike() != tt.classLike || tt.kind.IsTag() != tt.tag ||
				tt.kind.IsType() != tt.isType || tt.kind.IsScope() != tt.scope {
				t.Fatalf("unexpected predicates for %s", tt.kind)
			}
		})
	}
	if Kind(99).String() != "unknown" {
		t.Fatal("expected out-of-range kinds to print as unknown")
	}
}

func TestDeclaration_TagSurvivesHiding(t *testing.T) {
	table := New()
	strct := NewDeclaration("stat", KindStruct)
	table.AddDeclaration(strct)
	fn := NewDeclaration("stat", KindFunction)
	table.AddDeclaration(fn)

	root := table.CompilationUnit()
	if m, _ := root.Member("stat"); m != fn {
		t.Fatalf("Member(stat) = %v, want the function", m)
	}
	if tag, ok := root.Tag("stat"); !ok || tag != strct {
		t.Fatalf("Tag(stat) = %v, %v, want the struct", tag, ok)
	}
	if _, ok := root.Tag("missing"); ok {
		t.Fatal("unexpected tag for an undeclared name")
	}
	if _, ok := NewDeclaration("empty", KindClass).Tag("x"); ok {
		t.Fatal("a scope with no members has no tags")
	}
}
