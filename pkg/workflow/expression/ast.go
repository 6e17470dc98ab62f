// Package expression implements the hand-rolled `${{ ... }}` template
// expression language: tokenizer, parser, AST, and evaluator.
package expression

// Node is implemented by Ref, Bool, Ternary, and the literal leaf used
// to represent bare numbers/strings/booleans appearing as combinator
// operands or ternary branches (e.g. the `42` in `inputs.x or 42`).
type Node interface {
	exprNode()
}

// PathSegmentKind distinguishes a dotted field access from a bracketed
// index/key access.
type PathSegmentKind int

const (
	SegField PathSegmentKind = iota
	SegIndex
	SegKey
)

// PathSegment is one step of a Ref's access path after its root.
type PathSegment struct {
	Kind  PathSegmentKind
	Field string // SegField
	Index int    // SegIndex (may be negative)
	Key   string // SegKey
}

// Ref is a reference expression: a root (inputs/steps/item/index)
// followed by zero or more dotted/bracketed path segments, with
// negation absorbed from a leading `not`.
type Ref struct {
	Root    string
	Path    []PathSegment
	Negated bool
}

func (*Ref) exprNode() {}

// Literal is a bare value operand: number, quoted string, true/false,
// or null/none.
type Literal struct {
	Value interface{}
}

func (*Literal) exprNode() {}

// Bool is a left-to-right, short-circuit, value-returning `and`/`or`
// chain. Op is "and" or "or" and applies uniformly across Operands,
// matching the grammar's left-associative combinator chaining.
type Bool struct {
	Op       string
	Operands []Node
}

func (*Bool) exprNode() {}

// Ternary is `IfTrue if Cond else IfFalse`, Python-style; only the
// selected branch is evaluated.
type Ternary struct {
	Cond    Node
	IfTrue  Node
	IfFalse Node
}

func (*Ternary) exprNode() {}
