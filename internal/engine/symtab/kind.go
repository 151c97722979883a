package symtab

// Kind classifies what a Declaration names.
type Kind int

const (
	KindUndefined Kind = iota
	KindNamespace
	KindClass
	KindStruct
	KindUnion
	KindEnumeration
	KindEnumerator
	KindTypedef
	KindFunction
	KindVariable
	KindParameter
	KindBlock
	KindMacro
)

var kindNames = [...]string{
	KindUndefined:   "undefined",
	KindNamespace:   "namespace",
	KindClass:       "class",
	KindStruct:      "struct",
	KindUnion:       "union",
	KindEnumeration: "enum",
	KindEnumerator:  "enumerator",
	KindTypedef:     "typedef",
	KindFunction:    "function",
	KindVariable:    "variable",
	KindParameter:   "parameter",
	KindBlock:       "block",
	KindMacro:       "macro",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k Kind) IsClassLike() bool {
	return k == KindClass || k == KindStruct || k == KindUnion
}

// IsTag reports whether the kind can be named by an elaborated type specifier.
func (k Kind) IsTag() bool {
	return k.IsClassLike() || k == KindEnumeration
}

func (k Kind) IsType() bool {
	return k.IsTag() || k == KindTypedef
}

func (k Kind) IsScope() bool {
	switch k {
	case KindNamespace, KindClass, KindStruct, KindUnion, KindEnumeration, KindFunction, KindBlock:
		return true
	default:
		return false
	}
}
