package parser

import (
	"testing"

	"symscope/internal/engine/symtab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindSource(t *testing.T, lang, src string) (*File, *symtab.Table) {
	t.Helper()
	loader, err := NewGrammarLoader(map[string]string{".c": "c", ".cpp": "cpp"})
	require.NoError(t, err)

	pool := NewParserPool(loader.Language(lang))
	sp := pool.Get()
	defer pool.Put(sp)
	tree := sp.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	defer tree.Close()

	file, table, err := (&BindingExtractor{Language: lang}).Bind(tree.RootNode(), []byte(src), "unit."+lang)
	require.NoError(t, err)
	require.Equal(t, 1, table.Depth())
	return file, table
}

func referencesTo(file *File, name string) []Reference {
	var out []Reference
	for _, r := range file.References {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func declarationsNamed(file *File, qualified string) []Declaration {
	var out []Declaration
	for _, d := range file.Declarations {
		if d.QualifiedName == qualified {
			out = append(out, d)
		}
	}
	return out
}

func declarationOfKind(t *testing.T, file *File, qualified, kind string) Declaration {
	t.Helper()
	for _, d := range declarationsNamed(file, qualified) {
		if d.Kind == kind {
			return d
		}
	}
	t.Fatalf("no %s %s among %+v", kind, qualified, file.Declarations)
	return Declaration{}
}

func TestBind_BaseMemberLookup(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
struct Base { int value; };
struct Derived : Base { int get() { return value; } };
`)
	assert.Empty(t, file.Diagnostics)

	refs := referencesTo(file, "value")
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Resolved)
	assert.Equal(t, "Base::value", refs[0].Target)
	assert.Equal(t, RefContextLexical, refs[0].Context)

	derived := declarationOfKind(t, file, "Derived", "struct")
	assert.Equal(t, []string{"Base"}, derived.Bases)
}

func TestBind_AmbiguousMember(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
struct L { int x; };
struct R { int x; };
struct D : L, R { int f() { return x; } };
`)
	require.Len(t, file.Diagnostics, 1)
	diag := file.Diagnostics[0]
	assert.Equal(t, "AMBIGUOUS", diag.Code)
	assert.Equal(t, "x", diag.Symbol)
	assert.Equal(t, []string{"variable L::x", "variable R::x"}, diag.Candidates)
	assert.Equal(t, 4, diag.Location.Line)
}

func TestBind_VirtualDiamond(t *testing.T) {
	tests := []struct {
		name      string
		secondArm string
		wantCode  string
	}{
		{name: "both virtual", secondArm: "struct C : virtual A {};"},
		{name: "one arm not virtual", secondArm: "struct C : A {};", wantCode: "AMBIGUOUS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, _ := bindSource(t, "cpp", `
struct A { int x; };
struct B : virtual A {};
`+tt.secondArm+`
struct D : B, C { int f() { return x; } };
`)
			if tt.wantCode == "" {
				assert.Empty(t, file.Diagnostics)
				refs := referencesTo(file, "x")
				require.Len(t, refs, 1)
				assert.Equal(t, "A::x", refs[0].Target)
				return
			}
			require.Len(t, file.Diagnostics, 1)
			assert.Equal(t, tt.wantCode, file.Diagnostics[0].Code)
		})
	}
}

func TestBind_CircularInheritance(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
struct B;
struct A : B {};
struct B : A {};
int v = A::missing;
`)
	a := declarationOfKind(t, file, "A", "struct")
	assert.Equal(t, []string{"B"}, a.Bases)
	require.Len(t, declarationsNamed(file, "B"), 1, "the definition completes the forward declaration")

	require.Len(t, file.Diagnostics, 1)
	assert.Equal(t, "CIRCULAR_INHERITANCE", file.Diagnostics[0].Code)
	assert.Equal(t, "missing", file.Diagnostics[0].Symbol)
}

func TestBind_Enumerators(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
enum Color { Red, Green };
enum class Mode { On, Off };
int a = Green;
Mode m = Mode::On;
int b = On;
`)
	green := referencesTo(file, "Green")
	require.Len(t, green, 1)
	assert.Equal(t, "Green", green[0].Target, "unscoped enumerators live beside their enum")

	on := referencesTo(file, "On")
	require.Len(t, on, 2)
	assert.True(t, on[0].Resolved)
	assert.Equal(t, "Mode::On", on[0].Target)
	assert.False(t, on[1].Resolved)

	require.Len(t, file.Diagnostics, 1)
	assert.Equal(t, "NOT_FOUND", file.Diagnostics[0].Code)
	assert.Equal(t, "On", file.Diagnostics[0].Symbol)

	red := declarationOfKind(t, file, "Red", "enumerator")
	assert.Equal(t, "Color", red.Type)
}

func TestBind_StructTagAndFunctionShareName(t *testing.T) {
	file, _ := bindSource(t, "c", `
struct stat { long st_size; };
int stat(const char *path, struct stat *buf);
long size(const char *path) {
	struct stat s;
	stat(path, &s);
	return s.st_size;
}
`)
	assert.Empty(t, file.Diagnostics)
	tag := declarationOfKind(t, file, "stat", "struct")
	fn := declarationOfKind(t, file, "stat", "function")

	var elaborated, called int
	for _, r := range referencesTo(file, "stat") {
		switch r.Context {
		case RefContextElaborated:
			elaborated++
			assert.Equal(t, tag.ID, r.TargetID)
		case RefContextLexical:
			called++
			assert.Equal(t, fn.ID, r.TargetID)
		}
	}
	assert.Equal(t, 2, elaborated)
	assert.Equal(t, 1, called)

	member := referencesTo(file, "st_size")
	require.Len(t, member, 1)
	assert.Equal(t, RefContextMember, member[0].Context)
	assert.Equal(t, "stat::st_size", member[0].Target)
}

func TestBind_OutOfLineMemberDefinition(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
namespace ns {
struct Widget {
	int count;
	int get();
};
}
int ns::Widget::get() { return count; }
void ns::Widget::missing() {}
`)
	require.Len(t, declarationsNamed(file, "ns::Widget::get"), 1, "the definition reuses the member declaration")

	count := referencesTo(file, "count")
	require.Len(t, count, 1)
	assert.Equal(t, "ns::Widget::count", count[0].Target)

	require.Len(t, file.Diagnostics, 1)
	assert.Equal(t, "NOT_FOUND", file.Diagnostics[0].Code)
	assert.Equal(t, "missing", file.Diagnostics[0].Symbol)
	declarationOfKind(t, file, "ns::Widget::missing", "function")
}

func TestBind_InlineBodySeesLaterMembers(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
class Counter {
public:
	int next() { return value + step(); }
private:
	int step() { return 1; }
	int value;
};
`)
	assert.Empty(t, file.Diagnostics)
	value := referencesTo(file, "value")
	require.Len(t, value, 1)
	assert.Equal(t, "Counter::value", value[0].Target)
	step := referencesTo(file, "step")
	require.Len(t, step, 1)
	assert.Equal(t, "Counter::step", step[0].Target)
}

func TestBind_MemberAccessThroughTypedef(t *testing.T) {
	file, _ := bindSource(t, "c", `
typedef struct { int x; int y; } Point;
int sum(Point p) { return p.x + p.y; }
`)
	assert.Empty(t, file.Diagnostics)
	for _, name := range []string{"x", "y"} {
		refs := referencesTo(file, name)
		require.Len(t, refs, 1, name)
		assert.True(t, refs[0].Resolved, name)
		assert.Equal(t, RefContextMember, refs[0].Context, name)
	}
	declarationOfKind(t, file, "Point", "typedef")
}

func TestBind_TemplateParametersAreNotLookedUp(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
template <typename T>
struct Box {
	T value;
	T get() { return value; }
};
`)
	assert.Empty(t, file.Diagnostics)
	assert.Empty(t, referencesTo(file, "T"))
	value := referencesTo(file, "value")
	require.Len(t, value, 1)
	assert.Equal(t, "Box::value", value[0].Target)
}

func TestBind_LocalScopes(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
int x;
void f() {
	int y = x;
	for (int i = 0; i < 3; i++) { y += i; }
	int z = i;
}
`)
	require.Len(t, file.Diagnostics, 1)
	diag := file.Diagnostics[0]
	assert.Equal(t, "NOT_FOUND", diag.Code)
	assert.Equal(t, "i", diag.Symbol)
	assert.Equal(t, 6, diag.Location.Line)
	assert.Equal(t, "unit.cpp", diag.Location.File)

	x := referencesTo(file, "x")
	require.Len(t, x, 1)
	assert.Equal(t, "x", x[0].Target)
}

func TestBind_ConstructorInitializers(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
struct Base { Base(int) {} };
struct Derived : Base {
	int n;
	Derived() : Base(1), n(2) {}
};
`)
	assert.Empty(t, file.Diagnostics)
	n := referencesTo(file, "n")
	require.Len(t, n, 1)
	assert.Equal(t, "Derived::n", n[0].Target)

	base := referencesTo(file, "Base")
	require.NotEmpty(t, base)
	for _, r := range base {
		assert.Equal(t, "Base", r.Target)
	}
}

func TestBind_NamespaceAlias(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
namespace outer { namespace inner { int v; } }
namespace oi = outer::inner;
int w = oi::v;
`)
	assert.Empty(t, file.Diagnostics)
	v := referencesTo(file, "v")
	require.Len(t, v, 1)
	assert.Equal(t, "outer::inner::v", v[0].Target)

	alias := declarationOfKind(t, file, "oi", "namespace")
	assert.Equal(t, "outer::inner", alias.Type)
}

func TestBind_CMacros(t *testing.T) {
	file, _ := bindSource(t, "c", `
#define LIMIT 10
#ifdef FEATURE
int table[LIMIT];
#endif
int get(void) { return LIMIT; }
`)
	assert.Empty(t, file.Diagnostics)
	assert.Empty(t, referencesTo(file, "FEATURE"))
	declarationOfKind(t, file, "LIMIT", "macro")
	declarationOfKind(t, file, "table", "variable")

	limit := referencesTo(file, "LIMIT")
	require.Len(t, limit, 2)
	for _, r := range limit {
		assert.True(t, r.Resolved)
	}
}

func TestBind_MalformedInputStaysBalanced(t *testing.T) {
	file, _ := bindSource(t, "cpp", `
namespace a { struct B { void f( { int x = ; }
class C : public { int y;
`)
	assert.NotNil(t, file)
}
