package parser

import (
	stderrors "errors"
	"fmt"

	"symscope/internal/core/errors"
	"symscope/internal/engine/symtab"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// BindingExtractor binds a C or C++ syntax tree into a fresh symbol table,
// one table per translation unit. It holds no state between calls and is
// safe for concurrent use.
type BindingExtractor struct {
	Language string
}

func (e *BindingExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file, _, err := e.Bind(root, source, filePath)
	return file, err
}

// Bind is Extract that also returns the populated table.
func (e *BindingExtractor) Bind(root *sitter.Node, source []byte, filePath string) (*File, *symtab.Table, error) {
	b := newBinder(source, &File{Path: filePath, Language: e.Language})
	b.engine.Walk(b.ctx, root)
	if depth := b.table.Depth(); depth != 1 {
		return nil, nil, errors.New(errors.CodeInternal, fmt.Sprintf("unbalanced scopes after binding: depth %d", depth))
	}
	b.finish()
	return b.ctx.File, b.table, nil
}

// deferredBody is member code bound once the enclosing class is complete,
// together with the nested class scopes and template parameters it must be
// bound in.
type deferredBody struct {
	scopes         []*symtab.Declaration
	templateParams []map[string]bool
	run            func()
}

// binder is the parser-side client of symtab.Table: it opens and closes
// scopes as the walk enters and leaves them, declares names and looks up
// every use.
type binder struct {
	ctx    *ExtractionContext
	engine *ExtractorEngine
	table  *symtab.Table

	declared []*symtab.Declaration
	defined  map[*symtab.Declaration]bool

	// deferred is non-nil while the members of a class are being declared.
	deferred  *[]deferredBody
	deferBase int

	templateParams []map[string]bool
}

func newBinder(source []byte, file *File) *binder {
	b := &binder{
		ctx:     &ExtractionContext{Source: source, File: file},
		table:   symtab.New(),
		defined: make(map[*symtab.Declaration]bool),
	}
	skip := func(*ExtractionContext, *sitter.Node) bool { return true }
	b.engine = NewExtractorEngine(map[string]NodeHandler{
		"namespace_definition":       b.onNamespace,
		"namespace_alias_definition": b.onNamespaceAlias,
		"class_specifier":            b.onTypeSpecifier,
		"struct_specifier":           b.onTypeSpecifier,
		"union_specifier":            b.onTypeSpecifier,
		"enum_specifier":             b.onTypeSpecifier,
		"function_definition":        b.onFunctionDefinition,
		"declaration":                b.onDeclaration,
		"field_declaration":          b.onFieldDeclaration,
		"type_definition":            b.onTypedef,
		"alias_declaration":          b.onAlias,
		"template_declaration":       b.onTemplate,
		"compound_statement":         b.onBlock,
		"for_statement":              b.onBlock,
		"if_statement":               b.onBlock,
		"while_statement":            b.onBlock,
		"switch_statement":           b.onBlock,
		"for_range_loop":             b.onRangeFor,
		"catch_clause":               b.onCatch,
		"lambda_expression":          b.onLambda,
		"preproc_def":                b.onMacro,
		"preproc_function_def":       b.onMacro,
		"preproc_ifdef":              b.onPreprocConditional,
		"preproc_elifdef":            b.onPreprocConditional,
		"preproc_if":                 b.onPreprocConditional,
		"preproc_elif":               b.onPreprocConditional,
		"identifier":                 b.onIdentifier,
		"type_identifier":            b.onIdentifier,
		"namespace_identifier":       b.onNamespaceIdentifier,
		"qualified_identifier":       b.onQualified,
		"template_type":              b.onTemplateName,
		"template_function":          b.onTemplateName,
		"field_expression":           b.onFieldExpression,
		"field_initializer_list":     b.onFieldInitializers,
		"ERROR":                      b.onError,

		"preproc_include":       skip,
		"preproc_call":          skip,
		"using_declaration":     skip,
		"friend_declaration":    skip,
		"attribute_declaration": skip,
		"attribute_specifier":   skip,
		"requires_clause":       skip,
		"requires_expression":   skip,
		"concept_definition":    skip,
		"dependent_type":        skip,
		"destructor_name":       skip,
		"operator_name":         skip,
	})
	return b
}

func (b *binder) walk(node *sitter.Node) {
	b.engine.Walk(b.ctx, node)
}

// walkExcept walks the children of node other than skip.
func (b *binder) walkExcept(node, skip *sitter.Node) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if sameNode(child, skip) {
			continue
		}
		b.walk(child)
	}
}

func (b *binder) text(node *sitter.Node) string {
	return b.ctx.Text(node)
}

// declare binds a new declaration in the current scope.
func (b *binder) declare(node *sitter.Node, name string, kind symtab.Kind) *symtab.Declaration {
	d := symtab.NewDeclaration(name, kind)
	d.Data = b.ctx.Location(node)
	b.table.AddDeclaration(d)
	b.declared = append(b.declared, d)
	return d
}

// onError binds a syntax error node inside a function body speculatively:
// names used there are still looked up but its declarations are rolled
// back. At namespace and class scope it is walked like any other node.
func (b *binder) onError(_ *ExtractionContext, node *sitter.Node) bool {
	switch b.table.Peek().Kind {
	case symtab.KindFunction, symtab.KindBlock:
	default:
		return false
	}
	mark := b.table.Mark()
	n := len(b.declared)
	b.engine.WalkChildren(b.ctx, node)
	if b.table.Rollback(mark) {
		b.declared = b.declared[:n]
	}
	return true
}

// scoped runs fn with d as the current scope.
func (b *binder) scoped(d *symtab.Declaration, fn func()) {
	b.table.Push(d)
	defer b.table.Pop()
	fn()
}

// later binds member code after the members of the class being declared are
// all known, or immediately outside a class body.
func (b *binder) later(run func()) {
	if b.deferred == nil {
		run()
		return
	}
	*b.deferred = append(*b.deferred, deferredBody{
		scopes:         b.table.Scopes()[b.deferBase:],
		templateParams: append([]map[string]bool(nil), b.templateParams...),
		run:            run,
	})
}

func (b *binder) isTemplateParam(name string) bool {
	for i := len(b.templateParams) - 1; i >= 0; i-- {
		if b.templateParams[i][name] {
			return true
		}
	}
	return false
}

// resolve runs one lookup for the name written at node and records its
// outcome. Names that depend on a template parameter are not looked up.
func (b *binder) resolve(node *sitter.Node, name, context string, lookup func(string) (*symtab.Declaration, error)) *symtab.Declaration {
	if node == nil || name == "" || node.IsMissing() || b.isTemplateParam(name) {
		return nil
	}
	d, err := lookup(name)
	b.record(node, name, context, d, err)
	if err != nil {
		return nil
	}
	return d
}

func (b *binder) record(node *sitter.Node, name, context string, d *symtab.Declaration, err error) {
	loc := b.ctx.Location(node)
	ref := Reference{Name: name, Context: context, Location: loc}
	if err == nil && d != nil {
		ref.Resolved = true
		ref.Target = d.QualifiedName()
		ref.TargetID = d.ID()
	}
	b.ctx.File.References = append(b.ctx.File.References, ref)
	if ref.Resolved {
		return
	}

	diag := Diagnostic{
		Code:     string(errors.CodeInternal),
		Symbol:   name,
		Location: loc,
	}
	if code, ok := errors.CodeOf(err); ok {
		diag.Code = string(code)
	}
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		diag.Message = de.Message
	} else if err != nil {
		diag.Message = err.Error()
	}
	for _, c := range symtab.Candidates(err) {
		diag.Candidates = append(diag.Candidates, c.String())
	}
	b.ctx.File.Diagnostics = append(b.ctx.File.Diagnostics, diag)
}

func (b *binder) finish() {
	out := make([]Declaration, 0, len(b.declared))
	for _, d := range b.declared {
		if d.Name == "" {
			continue
		}
		decl := Declaration{
			ID:            d.ID(),
			Name:          d.Name,
			QualifiedName: d.QualifiedName(),
			Kind:          d.Kind.String(),
			Static:        d.Static,
		}
		if loc, ok := d.Data.(Location); ok {
			decl.Location = loc
		}
		if d.TypeDecl != nil && d.TypeDecl.Name != "" {
			decl.Type = d.TypeDecl.QualifiedName()
		}
		for _, p := range d.Parents() {
			decl.Bases = append(decl.Bases, p.Base.QualifiedName())
		}
		out = append(out, decl)
	}
	b.ctx.File.Declarations = out
}
