package jsontok

// Kind is the JSON type of a token.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindObject
	KindArray
	KindString
	// KindPrimitive covers numbers, true, false and null.
	KindPrimitive
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindPrimitive:
		return "primitive"
	default:
		return "invalid"
	}
}

// Token is one entry of the table. For strings Start/End exclude the quotes.
type Token struct {
	Kind   Kind
	Start  int
	End    int
	Parent int
	// Next is the index of the first token after this token's subtree.
	Next int
	// children counts direct child tokens; object keys and values both count.
	children int
	escaped  bool
}

// Size is the number of members of an object or elements of an array.
func (t Token) Size() int {
	switch t.Kind {
	case KindObject:
		return t.children / 2
	case KindArray:
		return t.children
	default:
		return 0
	}
}
