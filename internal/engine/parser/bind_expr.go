package parser

import (
	"symscope/internal/engine/symtab"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxTypedefChain bounds typedef chasing so a malformed unit cannot loop.
const maxTypedefChain = 16

func (b *binder) onIdentifier(_ *ExtractionContext, node *sitter.Node) bool {
	b.resolve(node, b.text(node), RefContextLexical, b.table.Lookup)
	return true
}

func (b *binder) onNamespaceIdentifier(_ *ExtractionContext, node *sitter.Node) bool {
	b.resolve(node, b.text(node), RefContextNested, b.table.LookupNestedNameSpecifier)
	return true
}

func (b *binder) onQualified(_ *ExtractionContext, node *sitter.Node) bool {
	b.resolveQualified(node)
	return true
}

func (b *binder) onTemplateName(_ *ExtractionContext, node *sitter.Node) bool {
	b.resolveTemplateName(node)
	return true
}

// resolveTemplateName resolves the name of "X<args>" lexically and binds the
// arguments.
func (b *binder) resolveTemplateName(node *sitter.Node) *symtab.Declaration {
	defer b.walk(node.ChildByFieldName("arguments"))
	name := node.ChildByFieldName("name")
	return b.resolve(name, b.text(name), RefContextLexical, b.table.Lookup)
}

// splitQualified flattens "::a::b<T>::c" into its scope qualifiers, whether
// it starts at the global scope, and the final name.
func splitQualified(node *sitter.Node) (scopes []*sitter.Node, global bool, last *sitter.Node) {
	cur := node
	for cur != nil && cur.Kind() == "qualified_identifier" {
		if scope := cur.ChildByFieldName("scope"); scope != nil {
			scopes = append(scopes, scope)
		} else if len(scopes) == 0 {
			global = true
		}
		cur = cur.ChildByFieldName("name")
	}
	return scopes, global, cur
}

// resolveScopes resolves the qualifiers of a qualified name to the scope
// the final name is looked up in. The first qualifier is found lexically,
// the others as members of the previous one.
func (b *binder) resolveScopes(scopes []*sitter.Node, global bool) (*symtab.Declaration, bool) {
	var scope *symtab.Declaration
	if global {
		scope = b.table.CompilationUnit()
	}
	for _, s := range scopes {
		nameNode := s
		switch s.Kind() {
		case "namespace_identifier", "type_identifier":
		case "template_type":
			nameNode = s.ChildByFieldName("name")
			b.walk(s.ChildByFieldName("arguments"))
		case "decltype":
			b.walk(s)
			return nil, false
		default:
			return nil, false
		}

		var d *symtab.Declaration
		if scope == nil {
			d = b.resolve(nameNode, b.text(nameNode), RefContextNested, b.table.LookupNestedNameSpecifier)
		} else {
			in := scope
			d = b.resolve(nameNode, b.text(nameNode), RefContextQualified, func(name string) (*symtab.Declaration, error) {
				return b.table.LookupIn(in, name)
			})
		}
		if scope = scopeOf(d); scope == nil {
			return nil, false
		}
	}
	return scope, scope != nil
}

func (b *binder) resolveQualified(node *sitter.Node) *symtab.Declaration {
	scopes, global, last := splitQualified(node)
	scope, ok := b.resolveScopes(scopes, global)
	if last == nil {
		return nil
	}
	nameNode := last
	switch last.Kind() {
	case "template_function", "template_type", "template_method":
		nameNode = last.ChildByFieldName("name")
		defer b.walk(last.ChildByFieldName("arguments"))
	}
	if !ok {
		return nil
	}
	return b.resolve(nameNode, declName(b, last), RefContextQualified, func(name string) (*symtab.Declaration, error) {
		return b.table.LookupIn(scope, name)
	})
}

func (b *binder) onFieldExpression(_ *ExtractionContext, node *sitter.Node) bool {
	b.memberOf(node)
	return true
}

// memberOf resolves the member named by "x.m" or "p->m" in the class type of
// the receiver. Receivers of unknown type are bound but their member is
// not looked up.
func (b *binder) memberOf(node *sitter.Node) *symtab.Declaration {
	class := b.exprType(node.ChildByFieldName("argument"))
	field := node.ChildByFieldName("field")
	if field == nil {
		return nil
	}
	nameNode := field
	switch field.Kind() {
	case "field_identifier":
	case "template_method":
		nameNode = field.ChildByFieldName("name")
		defer b.walk(field.ChildByFieldName("arguments"))
	default:
		return nil
	}
	if class == nil {
		return nil
	}
	return b.resolve(nameNode, b.text(nameNode), RefContextMember, func(name string) (*symtab.Declaration, error) {
		return b.table.LookupIn(class, name)
	})
}

// exprType binds an expression and returns the class its value has, when
// that can be told from declarations alone.
func (b *binder) exprType(node *sitter.Node) *symtab.Declaration {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		return typeOf(b.resolve(node, b.text(node), RefContextLexical, b.table.Lookup))
	case "qualified_identifier":
		return typeOf(b.resolveQualified(node))
	case "field_expression":
		return typeOf(b.memberOf(node))
	case "this":
		return b.enclosingClass()
	case "call_expression":
		defer b.walk(node.ChildByFieldName("arguments"))
		return b.exprType(node.ChildByFieldName("function"))
	case "pointer_expression":
		return b.exprType(node.ChildByFieldName("argument"))
	case "subscript_expression":
		arg := node.ChildByFieldName("argument")
		defer b.walkExcept(node, arg)
		return b.exprType(arg)
	case "parenthesized_expression":
		if node.NamedChildCount() == 1 {
			return b.exprType(node.NamedChild(0))
		}
	}
	b.walk(node)
	return nil
}

// typeOf returns the class of values declared by d: d itself for a type,
// otherwise its declared type. Functions yield their return type.
func typeOf(d *symtab.Declaration) *symtab.Declaration {
	if d == nil {
		return nil
	}
	if d.Kind.IsType() {
		return classOf(d)
	}
	return classOf(d.TypeDecl)
}

// classOf follows typedefs from d to a class, struct or union.
func classOf(d *symtab.Declaration) *symtab.Declaration {
	for i := 0; d != nil && d.Kind == symtab.KindTypedef && i < maxTypedefChain; i++ {
		d = d.TypeDecl
	}
	if d == nil || !d.Kind.IsClassLike() {
		return nil
	}
	return d
}

// scopeOf returns the namespace or type whose members a qualified name
// refers to, following typedefs and namespace aliases.
func scopeOf(d *symtab.Declaration) *symtab.Declaration {
	for i := 0; d != nil && i < maxTypedefChain; i++ {
		switch {
		case d.Kind == symtab.KindTypedef:
			d = d.TypeDecl
		case d.Kind == symtab.KindNamespace && d.TypeDecl != nil:
			d = d.TypeDecl
		case d.Kind == symtab.KindNamespace || d.Kind.IsTag():
			return d
		default:
			return nil
		}
	}
	return nil
}

func (b *binder) enclosingClass() *symtab.Declaration {
	scopes := b.table.Scopes()
	for i := len(scopes) - 1; i >= 0; i-- {
		if scopes[i].Kind.IsClassLike() {
			return scopes[i]
		}
	}
	return nil
}

// onFieldInitializers binds a constructor's member and base initializers.
func (b *binder) onFieldInitializers(_ *ExtractionContext, node *sitter.Node) bool {
	class := b.enclosingClass()
	for i := uint(0); i < node.NamedChildCount(); i++ {
		init := node.NamedChild(i)
		if init.Kind() != "field_initializer" || init.NamedChildCount() == 0 {
			b.walk(init)
			continue
		}
		target := init.NamedChild(0)
		switch target.Kind() {
		case "field_identifier":
			// Members and base classes share the syntax; members win.
			b.resolve(target, b.text(target), RefContextMember, func(name string) (*symtab.Declaration, error) {
				if class != nil {
					if d, err := b.table.LookupIn(class, name); !symtab.IsNotFound(err) {
						return d, err
					}
				}
				return b.table.Lookup(name)
			})
		case "qualified_identifier":
			b.resolveQualified(target)
		case "template_type", "template_method":
			b.resolveTemplateName(target)
		}
		b.walkExcept(init, target)
	}
	return true
}

// declName is the name a declarator node declares, with template arguments
// dropped and operator spelling normalized.
func declName(b *binder, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "template_function", "template_type", "template_method":
		return b.text(node.ChildByFieldName("name"))
	case "destructor_name", "operator_name", "operator_cast":
		return stripSpace(b.text(node))
	}
	return b.text(node)
}
