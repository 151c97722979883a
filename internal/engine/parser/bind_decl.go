package parser

import (
	"symscope/internal/engine/symtab"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func (b *binder) onNamespace(_ *ExtractionContext, node *sitter.Node) bool {
	body := node.ChildByFieldName("body")
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		// An unnamed namespace's members are visible in the enclosing scope.
		b.engine.WalkChildren(b.ctx, body)
		return true
	}

	names := namespacePath(nameNode, nil)
	for _, n := range names {
		b.table.Push(b.openNamespace(n))
	}
	b.engine.WalkChildren(b.ctx, body)
	for range names {
		b.table.Pop()
	}
	return true
}

// namespacePath flattens "a::b::c" into its namespace identifiers.
func namespacePath(node *sitter.Node, out []*sitter.Node) []*sitter.Node {
	switch node.Kind() {
	case "namespace_identifier":
		return append(out, node)
	case "nested_namespace_specifier":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			out = namespacePath(node.NamedChild(i), out)
		}
	}
	return out
}

// openNamespace reopens a namespace already declared in the current scope
// or declares a new one.
func (b *binder) openNamespace(nameNode *sitter.Node) *symtab.Declaration {
	name := b.text(nameNode)
	if existing, err := b.table.LookupMemberForDefinition(name); err == nil &&
		existing.Kind == symtab.KindNamespace && existing.TypeDecl == nil {
		return existing
	}
	return b.declare(nameNode, name, symtab.KindNamespace)
}

func (b *binder) onNamespaceAlias(_ *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	var target *symtab.Declaration
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if sameNode(child, nameNode) {
			continue
		}
		switch child.Kind() {
		case "namespace_identifier":
			target = b.resolve(child, b.text(child), RefContextNested, b.table.LookupNestedNameSpecifier)
		case "nested_namespace_specifier", "qualified_identifier":
			target = b.resolveNamespacePath(child)
		}
	}
	if nameNode != nil {
		alias := b.declare(nameNode, b.text(nameNode), symtab.KindNamespace)
		alias.TypeDecl = target
	}
	return true
}

// resolveNamespacePath resolves "a::b::c" written as a nested namespace
// specifier.
func (b *binder) resolveNamespacePath(node *sitter.Node) *symtab.Declaration {
	if node.Kind() == "qualified_identifier" {
		return scopeOf(b.resolveQualified(node))
	}
	var scope *symtab.Declaration
	for _, child := range namespacePath(node, nil) {
		name := b.text(child)
		var d *symtab.Declaration
		if scope == nil {
			d = b.resolve(child, name, RefContextNested, b.table.LookupNestedNameSpecifier)
		} else {
			in := scope
			d = b.resolve(child, name, RefContextQualified, func(n string) (*symtab.Declaration, error) {
				return b.table.LookupIn(in, n)
			})
		}
		if scope = scopeOf(d); scope == nil {
			return nil
		}
	}
	return scope
}

func (b *binder) onTypeSpecifier(_ *ExtractionContext, node *sitter.Node) bool {
	b.bindType(node, isDeclarationContext(node.Parent()))
	return true
}

// bindType binds a type specifier and returns the declaration it denotes,
// or nil for builtin and unresolvable types. standalone is set when the
// specifier is the whole declaration ("struct S;").
func (b *binder) bindType(node *sitter.Node, standalone bool) *symtab.Declaration {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "type_identifier":
		return b.resolve(node, b.text(node), RefContextLexical, b.table.Lookup)
	case "qualified_identifier":
		return b.resolveQualified(node)
	case "template_type":
		return b.resolveTemplateName(node)
	case "class_specifier", "struct_specifier", "union_specifier":
		return b.bindClass(node, standalone)
	case "enum_specifier":
		return b.bindEnum(node, standalone)
	case "primitive_type", "sized_type_specifier", "auto", "placeholder_type_specifier":
		return nil
	}
	b.walk(node)
	return nil
}

func classKind(nodeKind string) symtab.Kind {
	switch nodeKind {
	case "class_specifier":
		return symtab.KindClass
	case "union_specifier":
		return symtab.KindUnion
	default:
		return symtab.KindStruct
	}
}

// elaborated binds "struct S" without a body. A standalone specifier
// declares S in the current scope unless it is already there; elsewhere S
// is looked up and, as in C, implicitly declared when it does not exist.
func (b *binder) elaborated(nameNode *sitter.Node, kind symtab.Kind, standalone bool) *symtab.Declaration {
	if nameNode == nil {
		return nil
	}
	switch nameNode.Kind() {
	case "qualified_identifier":
		return b.resolveQualified(nameNode)
	case "template_type":
		return b.resolveTemplateName(nameNode)
	}
	name := b.text(nameNode)
	if standalone {
		if existing := b.tagInCurrentScope(name); existing != nil {
			return existing
		}
		return b.declare(nameNode, name, kind)
	}

	d, err := b.table.LookupElaborated(kind, name)
	if symtab.IsNotFound(err) && (kind == symtab.KindClass || kind == symtab.KindStruct) {
		// class and struct keys are interchangeable.
		alt := symtab.KindStruct
		if kind == symtab.KindStruct {
			alt = symtab.KindClass
		}
		if d2, err2 := b.table.LookupElaborated(alt, name); err2 == nil {
			d, err = d2, nil
		}
	}
	if symtab.IsNotFound(err) {
		return b.declare(nameNode, name, kind)
	}
	b.record(nameNode, name, RefContextElaborated, d, err)
	if err != nil {
		return nil
	}
	return d
}

func (b *binder) tagInCurrentScope(name string) *symtab.Declaration {
	if d, ok := b.table.Peek().Tag(name); ok {
		return d
	}
	return nil
}

func (b *binder) bindClass(node *sitter.Node, standalone bool) *symtab.Declaration {
	kind := classKind(node.Kind())
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if body == nil {
		return b.elaborated(nameNode, kind, standalone)
	}

	if nameNode == nil {
		if standalone {
			// Members of an anonymous union or struct belong to the enclosing scope.
			b.engine.WalkChildren(b.ctx, body)
			return nil
		}
		anon := symtab.NewDeclaration("", kind)
		anon.Data = b.ctx.Location(node)
		b.bindClassBody(anon, body)
		return anon
	}

	opened := 0
	var d *symtab.Declaration
	switch nameNode.Kind() {
	case "qualified_identifier":
		scopes, global, last := splitQualified(nameNode)
		scope, ok := b.resolveScopes(scopes, global)
		if !ok || last == nil {
			b.walk(body)
			return nil
		}
		b.table.Push(scope)
		opened++
		d = b.defineTag(last, kind)
	case "template_type":
		d = b.defineTag(nameNode.ChildByFieldName("name"), kind)
		b.walk(nameNode.ChildByFieldName("arguments"))
	default:
		d = b.defineTag(nameNode, kind)
	}

	b.bindBases(d, ChildOfKind(node, "base_class_clause"))
	b.bindClassBody(d, body)
	for ; opened > 0; opened-- {
		b.table.Pop()
	}
	return d
}

// defineTag returns the declaration a class definition completes: a forward
// declaration in the current scope, or a new declaration.
func (b *binder) defineTag(nameNode *sitter.Node, kind symtab.Kind) *symtab.Declaration {
	name := b.text(nameNode)
	d := b.tagInCurrentScope(name)
	if d == nil || b.defined[d] || !d.Kind.IsClassLike() {
		d = b.declare(nameNode, name, kind)
	}
	b.defined[d] = true
	return d
}

func (b *binder) bindBases(class *symtab.Declaration, clause *sitter.Node) {
	if clause == nil {
		return
	}
	virtual := false
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		var base *symtab.Declaration
		switch child.Kind() {
		case "virtual":
			virtual = true
			continue
		case ",":
			virtual = false
			continue
		case "type_identifier":
			base = b.resolve(child, b.text(child), RefContextBase, b.table.Lookup)
		case "qualified_identifier":
			base = b.resolveQualified(child)
		case "template_type":
			base = b.resolveTemplateName(child)
		default:
			continue
		}
		if cls := classOf(base); cls != nil {
			b.table.AddParent(class, cls, virtual)
		}
		virtual = false
	}
}

// bindClassBody binds a class body in two passes: member declarations
// first, then member function bodies and default member initializers, so
// that those see every member.
func (b *binder) bindClassBody(class *symtab.Declaration, body *sitter.Node) {
	b.table.Push(class)
	defer b.table.Pop()

	if b.deferred != nil {
		// Nested class: its bodies wait for the outermost class.
		b.engine.WalkChildren(b.ctx, body)
		return
	}

	var pending []deferredBody
	b.deferred = &pending
	b.deferBase = b.table.Depth()
	b.engine.WalkChildren(b.ctx, body)
	b.deferred = nil

	outer := b.templateParams
	for _, p := range pending {
		b.templateParams = p.templateParams
		for _, s := range p.scopes {
			b.table.Push(s)
		}
		p.run()
		for range p.scopes {
			b.table.Pop()
		}
	}
	b.templateParams = outer
}

func (b *binder) bindEnum(node *sitter.Node, standalone bool) *symtab.Declaration {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	scoped := HasChildOfKind(node, "class") || HasChildOfKind(node, "struct")
	b.bindType(node.ChildByFieldName("base"), false)

	var enum *symtab.Declaration
	switch {
	case body == nil && nameNode == nil:
		return nil
	case body == nil:
		if standalone && scoped {
			// Opaque declaration: enum class E : int;
			enum = b.elaborated(nameNode, symtab.KindEnumeration, true)
			if enum != nil {
				enum.Scoped = true
			}
			return enum
		}
		return b.elaborated(nameNode, symtab.KindEnumeration, standalone)
	case nameNode == nil:
		enum = symtab.NewDeclaration("", symtab.KindEnumeration)
		enum.Data = b.ctx.Location(node)
	default:
		name := b.text(nameNode)
		enum = b.tagInCurrentScope(name)
		if enum == nil || enum.Kind != symtab.KindEnumeration || b.defined[enum] {
			enum = b.declare(nameNode, name, symtab.KindEnumeration)
		}
	}
	enum.Scoped = scoped
	b.defined[enum] = true

	b.scoped(enum, func() {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			e := body.NamedChild(i)
			if e.Kind() != "enumerator" {
				b.walk(e)
				continue
			}
			if name := e.ChildByFieldName("name"); name != nil {
				b.declare(name, b.text(name), symtab.KindEnumerator)
			}
			b.walk(e.ChildByFieldName("value"))
		}
	})
	return enum
}

func (b *binder) onFunctionDefinition(_ *ExtractionContext, node *sitter.Node) bool {
	returnType := b.bindType(node.ChildByFieldName("type"), false)
	info := unwrapDeclarator(node.ChildByFieldName("declarator"))
	if !info.isFunction() || info.name == nil {
		b.walkExcept(node, node.ChildByFieldName("type"))
		return true
	}
	static := hasStorageClass(node, "static", b.ctx.Source)

	fn, opened := b.functionFor(info.name)
	if fn.TypeDecl == nil {
		fn.TypeDecl = returnType
	}
	fn.Static = fn.Static || static
	b.defined[fn] = true

	b.later(func() {
		b.scoped(fn, func() {
			b.declareParameters(info.function.ChildByFieldName("parameters"))
			b.walk(ChildOfKind(node, "field_initializer_list"))
			body := node.ChildByFieldName("body")
			if body != nil && body.Kind() == "compound_statement" {
				// The outermost block shares the parameters' scope.
				b.engine.WalkChildren(b.ctx, body)
			} else {
				b.walk(body)
			}
		})
	})

	for ; opened > 0; opened-- {
		b.table.Pop()
	}
	return true
}

// functionFor returns the declaration a function definition defines. For
// "A::f" the scope A is pushed and the caller pops it; opened reports how
// many scopes were pushed.
func (b *binder) functionFor(nameNode *sitter.Node) (fn *symtab.Declaration, opened int) {
	if nameNode.Kind() == "qualified_identifier" {
		scopes, global, last := splitQualified(nameNode)
		scope, ok := b.resolveScopes(scopes, global)
		name := declName(b, last)
		if !ok || name == "" {
			fn = symtab.NewDeclaration(name, symtab.KindFunction)
			fn.Data = b.ctx.Location(nameNode)
			return fn, 0
		}
		b.table.Push(scope)
		if isConstructor(scope, name) {
			return b.constructor(last, name), 1
		}
		if existing := b.resolve(last, name, RefContextQualified, b.table.LookupMemberForDefinition); existing != nil &&
			existing.Kind == symtab.KindFunction {
			return existing, 1
		}
		return b.declare(last, name, symtab.KindFunction), 1
	}

	name := declName(b, nameNode)
	if isConstructor(b.table.Peek(), name) {
		return b.constructor(nameNode, name), 0
	}
	if existing, err := b.table.LookupMemberForDefinition(name); err == nil &&
		existing.Kind == symtab.KindFunction && !b.defined[existing] {
		return existing, 0
	}
	return b.declare(nameNode, name, symtab.KindFunction), 0
}

// isConstructor reports whether name declared in scope names a constructor.
func isConstructor(scope *symtab.Declaration, name string) bool {
	return scope.Kind.IsClassLike() && name == scope.Name
}

// constructor returns an unbound function scope for a constructor body.
// Constructors are not bound by name so that the class name keeps
// denoting the class inside its own scope.
func (b *binder) constructor(node *sitter.Node, name string) *symtab.Declaration {
	fn := symtab.NewDeclaration(name, symtab.KindFunction)
	fn.Data = b.ctx.Location(node)
	return fn
}

func (b *binder) declareParameters(list *sitter.Node) {
	b.bindParameters(list, true)
}

// bindParameters binds parameter types and default arguments, and declares
// the parameter names when declare is set.
func (b *binder) bindParameters(list *sitter.Node, declare bool) {
	if list == nil {
		return
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		switch p.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}
		typ := b.bindType(p.ChildByFieldName("type"), false)
		info := unwrapDeclarator(p.ChildByFieldName("declarator"))
		for _, size := range info.sizes {
			b.walk(size)
		}
		if info.function != nil {
			b.bindParameters(info.function.ChildByFieldName("parameters"), false)
		}
		if declare && info.name != nil && info.name.Kind() == "identifier" {
			param := b.declare(info.name, b.text(info.name), symtab.KindParameter)
			param.TypeDecl = typ
		}
		b.walk(p.ChildByFieldName("default_value"))
	}
}

func (b *binder) onDeclaration(_ *ExtractionContext, node *sitter.Node) bool {
	declarators := fieldChildren(node, "declarator")
	typ := b.bindType(node.ChildByFieldName("type"), len(declarators) == 0)
	static := hasStorageClass(node, "static", b.ctx.Source)
	for _, d := range declarators {
		b.bindDeclarator(d, typ, static, symtab.KindVariable, "value")
	}
	return true
}

func (b *binder) onFieldDeclaration(_ *ExtractionContext, node *sitter.Node) bool {
	declarators := fieldChildren(node, "declarator")
	typ := b.bindType(node.ChildByFieldName("type"), len(declarators) == 0)
	static := hasStorageClass(node, "static", b.ctx.Source)
	for _, d := range declarators {
		b.bindDeclarator(d, typ, static, symtab.KindVariable, "")
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == "bitfield_clause" {
			b.walk(child)
		}
	}
	if values := fieldChildren(node, "default_value"); len(values) > 0 {
		b.later(func() {
			for _, v := range values {
				b.walk(v)
			}
		})
	}
	return true
}

// bindDeclarator declares what one declarator names. valueField names the
// initializer field of an init_declarator, if the context has one.
func (b *binder) bindDeclarator(node *sitter.Node, typ *symtab.Declaration, static bool, kind symtab.Kind, valueField string) {
	info := unwrapDeclarator(node)
	for _, size := range info.sizes {
		b.walk(size)
	}

	switch {
	case info.isFunction():
		b.declareFunction(info, typ, static)
		return
	case len(info.bindings) > 0:
		for _, id := range info.bindings {
			b.declare(id, b.text(id), kind)
		}
	case info.name == nil:
	case info.name.Kind() == "qualified_identifier":
		// Out-of-line definition of a static member: int A::count = 0;
		b.resolveQualified(info.name)
	default:
		d := b.declare(info.name, declName(b, info.name), kind)
		d.TypeDecl = typ
		d.Static = static
	}
	if info.function != nil {
		b.bindParameters(info.function.ChildByFieldName("parameters"), false)
	}

	if valueField != "" && node.Kind() == "init_declarator" {
		b.walk(node.ChildByFieldName(valueField))
	}
}

// declareFunction handles a function declaration without a body.
func (b *binder) declareFunction(info declarator, returnType *symtab.Declaration, static bool) {
	defer b.bindParameters(info.function.ChildByFieldName("parameters"), false)
	if info.name == nil {
		return
	}
	if info.name.Kind() == "qualified_identifier" {
		b.resolveQualified(info.name)
		return
	}
	name := declName(b, info.name)
	if isConstructor(b.table.Peek(), name) {
		return
	}
	fn, err := b.table.LookupMemberForDefinition(name)
	if err != nil || fn.Kind != symtab.KindFunction {
		fn = b.declare(info.name, name, symtab.KindFunction)
	}
	if fn.TypeDecl == nil {
		fn.TypeDecl = returnType
	}
	fn.Static = fn.Static || static
}

func (b *binder) onTypedef(_ *ExtractionContext, node *sitter.Node) bool {
	typ := b.bindType(node.ChildByFieldName("type"), false)
	for _, d := range fieldChildren(node, "declarator") {
		info := unwrapDeclarator(d)
		for _, size := range info.sizes {
			b.walk(size)
		}
		if info.function != nil {
			b.bindParameters(info.function.ChildByFieldName("parameters"), false)
		}
		if info.name == nil {
			continue
		}
		alias := b.declare(info.name, b.text(info.name), symtab.KindTypedef)
		alias.TypeDecl = typ
	}
	return true
}

func (b *binder) onAlias(_ *ExtractionContext, node *sitter.Node) bool {
	var typ *symtab.Declaration
	if desc := node.ChildByFieldName("type"); desc != nil {
		typ = b.bindType(desc.ChildByFieldName("type"), false)
		b.walk(desc.ChildByFieldName("declarator"))
	}
	if name := node.ChildByFieldName("name"); name != nil {
		alias := b.declare(name, b.text(name), symtab.KindTypedef)
		alias.TypeDecl = typ
	}
	return true
}

func (b *binder) onTemplate(_ *ExtractionContext, node *sitter.Node) bool {
	params := node.ChildByFieldName("parameters")
	b.templateParams = append(b.templateParams, b.templateParamNames(params))
	defer func() { b.templateParams = b.templateParams[:len(b.templateParams)-1] }()
	b.walkExcept(node, params)
	return true
}

func (b *binder) templateParamNames(params *sitter.Node) map[string]bool {
	names := make(map[string]bool)
	if params == nil {
		return names
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p.Kind() == "template_template_parameter_declaration" {
			p = p.NamedChild(p.NamedChildCount() - 1)
		}
		switch p.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			if info := unwrapDeclarator(p.ChildByFieldName("declarator")); info.name != nil {
				names[b.text(info.name)] = true
			}
		default:
			if name := p.ChildByFieldName("name"); name != nil {
				names[b.text(name)] = true
			} else if id := ChildOfKind(p, "type_identifier"); id != nil {
				names[b.text(id)] = true
			}
		}
	}
	return names
}

func (b *binder) onBlock(_ *ExtractionContext, node *sitter.Node) bool {
	block := symtab.NewDeclaration("", symtab.KindBlock)
	b.scoped(block, func() { b.engine.WalkChildren(b.ctx, node) })
	return true
}

func (b *binder) onRangeFor(_ *ExtractionContext, node *sitter.Node) bool {
	block := symtab.NewDeclaration("", symtab.KindBlock)
	b.scoped(block, func() {
		b.walk(node.ChildByFieldName("initializer"))
		typ := b.bindType(node.ChildByFieldName("type"), false)
		b.walk(node.ChildByFieldName("right"))
		if d := node.ChildByFieldName("declarator"); d != nil {
			b.bindDeclarator(d, typ, false, symtab.KindVariable, "")
		}
		b.walk(node.ChildByFieldName("body"))
	})
	return true
}

func (b *binder) onCatch(_ *ExtractionContext, node *sitter.Node) bool {
	block := symtab.NewDeclaration("", symtab.KindBlock)
	b.scoped(block, func() {
		b.declareParameters(node.ChildByFieldName("parameters"))
		b.engine.WalkChildren(b.ctx, node.ChildByFieldName("body"))
	})
	return true
}

func (b *binder) onLambda(_ *ExtractionContext, node *sitter.Node) bool {
	b.walk(node.ChildByFieldName("captures"))
	block := symtab.NewDeclaration("", symtab.KindBlock)
	b.scoped(block, func() {
		if d := node.ChildByFieldName("declarator"); d != nil {
			b.declareParameters(d.ChildByFieldName("parameters"))
		}
		b.engine.WalkChildren(b.ctx, node.ChildByFieldName("body"))
	})
	return true
}

func (b *binder) onMacro(_ *ExtractionContext, node *sitter.Node) bool {
	name := node.ChildByFieldName("name")
	if name == nil {
		return true
	}
	macro := symtab.NewDeclaration(b.text(name), symtab.KindMacro)
	macro.Data = b.ctx.Location(name)
	b.table.AddDeclarationTo(b.table.CompilationUnit(), macro)
	b.declared = append(b.declared, macro)
	return true
}

// onPreprocConditional binds both branches of a conditional but not its
// condition, which names macros that are usually defined elsewhere.
func (b *binder) onPreprocConditional(_ *ExtractionContext, node *sitter.Node) bool {
	cond := node.ChildByFieldName("condition")
	if cond == nil {
		cond = node.ChildByFieldName("name")
	}
	b.walkExcept(node, cond)
	return true
}
