package parser

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// declarator is what one declarator chain such as "*(*fp)[N]" declares.
type declarator struct {
	name *sitter.Node
	// function is the outermost function_declarator on the chain.
	function *sitter.Node
	// pointerToFunction is set when a pointer or reference sits between the
	// name and the function declarator, which makes the name a variable.
	pointerToFunction bool
	sizes             []*sitter.Node
	bindings          []*sitter.Node
}

func (d declarator) isFunction() bool {
	return d.function != nil && !d.pointerToFunction
}

func unwrapDeclarator(node *sitter.Node) declarator {
	var info declarator
	for cur := node; cur != nil; {
		switch cur.Kind() {
		case "identifier", "field_identifier", "type_identifier", "qualified_identifier",
			"destructor_name", "operator_name", "operator_cast", "template_function":
			info.name = cur
			return info
		case "structured_binding_declarator":
			for i := uint(0); i < cur.NamedChildCount(); i++ {
				if child := cur.NamedChild(i); child.Kind() == "identifier" {
					info.bindings = append(info.bindings, child)
				}
			}
			return info
		case "function_declarator":
			if info.function == nil {
				info.function = cur
			}
			cur = cur.ChildByFieldName("declarator")
		case "array_declarator":
			if size := cur.ChildByFieldName("size"); size != nil {
				info.sizes = append(info.sizes, size)
			}
			cur = cur.ChildByFieldName("declarator")
		case "pointer_declarator", "reference_declarator":
			if info.function != nil {
				info.pointerToFunction = true
			}
			cur = innerDeclarator(cur)
		case "init_declarator", "parenthesized_declarator", "attributed_declarator", "variadic_declarator":
			cur = innerDeclarator(cur)
		default:
			return info
		}
	}
	return info
}

// innerDeclarator returns the nested declarator of a wrapper node. Some
// wrappers carry it in the "declarator" field, others as their only or last
// named child.
func innerDeclarator(node *sitter.Node) *sitter.Node {
	if inner := node.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
		child := node.NamedChild(uint(i))
		switch child.Kind() {
		case "type_qualifier", "attribute_declaration", "ms_pointer_modifier", "ms_based_modifier", "comment":
			continue
		}
		return child
	}
	return nil
}

// fieldChildren returns every child stored under field, in source order.
func fieldChildren(node *sitter.Node, field string) []*sitter.Node {
	if node == nil {
		return nil
	}
	cursor := node.Walk()
	defer cursor.Close()
	children := node.ChildrenByFieldName(field, cursor)
	out := make([]*sitter.Node, 0, len(children))
	for i := range children {
		out = append(out, &children[i])
	}
	return out
}

func hasStorageClass(node *sitter.Node, class string, source []byte) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "storage_class_specifier" && child.Utf8Text(source) == class {
			return true
		}
	}
	return false
}

// isDeclarationContext reports whether a type specifier whose parent is
// parent stands alone as a declaration, as in "struct S;" or "union { ... };".
func isDeclarationContext(parent *sitter.Node) bool {
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "translation_unit", "declaration_list", "field_declaration_list",
		"template_declaration", "compound_statement", "linkage_specification",
		"preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "ERROR":
		return true
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
