package expression

import (
	"fmt"
	"sort"
	"strconv"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
)

// Iteration carries the `item`/`index` partition visible to a step
// nested inside a loop body or a parallel child that received one from
// its parent's resolved context. A nil Iteration means `item`/`index`
// references are invalid in the current scope.
type Iteration struct {
	Item  interface{}
	Index int
}

// Context is the evaluation environment passed to a Ref's root
// resolution: `inputs`, `steps`, and an optional `iteration` partition.
type Context struct {
	Inputs    map[string]interface{}
	Steps     map[string]interface{}
	Iteration *Iteration
}

// EvaluateExpression parses and evaluates a single `E` (the contents of
// one `${{ E }}` occurrence, without the delimiters).
func EvaluateExpression(exprText string, ctx *Context) (interface{}, error) {
	node, err := Parse(exprText)
	if err != nil {
		return nil, err
	}
	return evalNode(node, ctx, exprText)
}

func evalNode(n Node, ctx *Context, exprText string) (interface{}, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil
	case *Ref:
		return evalRef(v, ctx, exprText)
	case *Bool:
		return evalBool(v, ctx, exprText)
	case *Ternary:
		cond, err := evalNode(v.Cond, ctx, exprText)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return evalNode(v.IfTrue, ctx, exprText)
		}
		return evalNode(v.IfFalse, ctx, exprText)
	default:
		return nil, fmt.Errorf("expression: unknown node type %T", n)
	}
}

func evalBool(b *Bool, ctx *Context, exprText string) (interface{}, error) {
	var last interface{}
	for i, operand := range b.Operands {
		val, err := evalNode(operand, ctx, exprText)
		if err != nil {
			return nil, err
		}
		last = val
		if i == len(b.Operands)-1 {
			break
		}
		switch b.Op {
		case "or":
			if Truthy(val) {
				return val, nil
			}
		case "and":
			if !Truthy(val) {
				return val, nil
			}
		}
	}
	return last, nil
}

func evalRef(ref *Ref, ctx *Context, exprText string) (interface{}, error) {
	var root interface{}
	var available []string

	switch ref.Root {
	case "inputs":
		root = ctx.Inputs
		available = sortedKeys(ctx.Inputs)
	case "steps":
		root = ctx.Steps
		available = sortedKeys(ctx.Steps)
	case "item":
		if ctx.Iteration == nil {
			return nil, evalErr(exprText, nil, "'item' referenced outside an iteration scope")
		}
		root = ctx.Iteration.Item
	case "index":
		if ctx.Iteration == nil {
			return nil, evalErr(exprText, nil, "'index' referenced outside an iteration scope")
		}
		root = ctx.Iteration.Index
	default:
		return nil, evalErr(exprText, nil, fmt.Sprintf("unknown reference root %q", ref.Root))
	}

	cur := root
	for _, seg := range ref.Path {
		next, err := applySegment(cur, seg, exprText, available)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	if ref.Negated {
		return !Truthy(cur), nil
	}
	return cur, nil
}

func applySegment(cur interface{}, seg PathSegment, exprText string, rootAvailable []string) (interface{}, error) {
	switch seg.Kind {
	case SegField, SegKey:
		name := seg.Field
		if seg.Kind == SegKey {
			name = seg.Key
		}
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, evalErr(exprText, rootAvailable, fmt.Sprintf("cannot access field %q: value is not a mapping", name))
		}
		v, ok := m[name]
		if !ok {
			return nil, evalErr(exprText, rootAvailable, fmt.Sprintf("missing key %q", name))
		}
		return v, nil
	case SegIndex:
		switch coll := cur.(type) {
		case []interface{}:
			idx := normalizeIndex(seg.Index, len(coll))
			if idx < 0 || idx >= len(coll) {
				return nil, evalErr(exprText, rootAvailable, fmt.Sprintf("index %d out of range (length %d)", seg.Index, len(coll)))
			}
			return coll[idx], nil
		case string:
			runes := []rune(coll)
			idx := normalizeIndex(seg.Index, len(runes))
			if idx < 0 || idx >= len(runes) {
				return nil, evalErr(exprText, rootAvailable, fmt.Sprintf("index %d out of range (length %d)", seg.Index, len(runes)))
			}
			return string(runes[idx]), nil
		default:
			return nil, evalErr(exprText, rootAvailable, "cannot index a value that is not a sequence or string")
		}
	default:
		return nil, evalErr(exprText, rootAvailable, "invalid path segment")
	}
}

// normalizeIndex converts a Python-style negative index to its
// non-negative equivalent for a sequence of the given length.
func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

func evalErr(exprText string, availableKeys []string, reason string) error {
	sort.Strings(availableKeys)
	return &werrors.ExpressionEvaluationError{
		Expression:    exprText,
		AvailableKeys: availableKeys,
		Reason:        reason,
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truthy implements Python-like truthiness: nil, zero numbers, empty
// strings, and empty collections are falsy; everything else is truthy.
// The executor's `when`-condition path uses the same predicate, so a
// condition and an `and`/`or`/ternary operand always agree on what
// counts as false.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	default:
		return true
	}
}

// Stringify renders a value for template substitution, matching how a
// Python `str(value)` would render the common JSON-ish value kinds.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
