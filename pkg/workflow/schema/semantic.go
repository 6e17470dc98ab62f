package schema

import (
	"fmt"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/workflow"
	"github.com/windlass-dev/windlass/pkg/workflow/expression"
)

// ComponentLookup reports whether a name is registered in a namespace,
// satisfied by *registry.Registry without creating an import cycle
// between pkg/workflow/schema and pkg/registry.
type ComponentLookup interface {
	Has(namespace, name string) bool
}

// ValidationResult is the outcome of semantic validation: the document
// may still be usable if only Warnings are present.
type ValidationResult struct {
	Errors   []werrors.SemanticValidationError
	Warnings []werrors.SemanticValidationError
}

// Valid reports whether no errors (warnings are non-fatal) were found.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// ValidateForExecutor adapts Validate to workflow.SemanticValidator's
// signature, letting an Executor be wired with this package's
// validation without pkg/workflow importing pkg/workflow/schema (which
// would cycle back, since this package already imports pkg/workflow).
func ValidateForExecutor(doc *workflow.WorkflowDocument, lookup workflow.ComponentLookup) (bool, []string, []string) {
	result := Validate(doc, lookup)
	errs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e.Error()
	}
	warnings := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		warnings[i] = w.Error()
	}
	return result.Valid(), errs, warnings
}

// Validate walks doc and checks that every action/agent/generator/
// context_builder/workflow reference resolves in lookup, and that
// every `steps.<name>` reference inside an expression names a step
// that appears earlier in document order (siblings are valid inside
// branch/parallel scopes).
func Validate(doc *workflow.WorkflowDocument, lookup ComponentLookup) ValidationResult {
	v := &validator{lookup: lookup, seen: make(map[string]bool)}
	v.walkSteps(doc.Steps, "steps")
	return ValidationResult{Errors: v.errors, Warnings: v.warnings}
}

type validator struct {
	lookup   ComponentLookup
	seen     map[string]bool
	errors   []werrors.SemanticValidationError
	warnings []werrors.SemanticValidationError
}

func (v *validator) fail(code, path, msg string) {
	v.errors = append(v.errors, werrors.SemanticValidationError{Code: code, Path: path, Message: msg})
}

func (v *validator) walkSteps(steps []*workflow.StepRecord, pathPrefix string) {
	localSeen := make(map[string]bool)

	for i, step := range steps {
		path := fmt.Sprintf("%s[%d]", pathPrefix, i)
		v.checkComponentRef(step, path)
		v.checkExpressions(step, path, localSeen)

		switch step.Kind {
		case workflow.KindBranch:
			for j, opt := range step.Options {
				v.checkExprString(opt.When, fmt.Sprintf("%s.options[%d].when", path, j), localSeen)
				v.walkSteps([]*workflow.StepRecord{opt.Step}, fmt.Sprintf("%s.options[%d].step", path, j))
			}
		case workflow.KindParallel:
			v.walkSteps(step.Steps, path+".steps")
		case workflow.KindValidate:
			if step.OnFailure != nil {
				v.walkSteps([]*workflow.StepRecord{step.OnFailure}, path+".on_failure")
			}
		}

		v.seen[step.Name] = true
		localSeen[step.Name] = true
	}
}

func (v *validator) checkComponentRef(step *workflow.StepRecord, path string) {
	if v.lookup == nil {
		return
	}
	check := func(namespace, name, field string) {
		if name == "" {
			return
		}
		if !v.lookup.Has(namespace, name) {
			v.fail("unknown-reference", path+"."+field, fmt.Sprintf("no %s registered with name %q", namespace, name))
		}
	}
	switch step.Kind {
	case workflow.KindPython:
		check("actions", step.Action, "action")
	case workflow.KindAgent:
		check("agents", step.Agent, "agent")
	case workflow.KindGenerate:
		check("generators", step.Generator, "generator")
	case workflow.KindSubworkflow:
		check("workflows", step.Workflow, "workflow")
	}
	if step.ContextBuilder != "" {
		check("context_builders", step.ContextBuilder, "context_builder")
	}
}

// checkExpressions scans every expression-bearing field of step for
// `${{ ... }}` templates and validates any steps.<name> reference they
// contain against localSeen (earlier steps in this scope) ∪ v.seen
// (steps from enclosing scopes).
func (v *validator) checkExpressions(step *workflow.StepRecord, path string, localSeen map[string]bool) {
	v.checkExprString(step.When, path+".when", localSeen)
	for k, val := range step.Context {
		v.checkExprString(val, fmt.Sprintf("%s.context.%s", path, k), localSeen)
	}
	for k, val := range step.Kwargs {
		v.checkExprString(val, fmt.Sprintf("%s.kwargs.%s", path, k), localSeen)
	}
	for k, val := range step.WorkflowArgs {
		v.checkExprString(val, fmt.Sprintf("%s.inputs.%s", path, k), localSeen)
	}
}

func (v *validator) checkExprString(s, path string, localSeen map[string]bool) {
	for _, exprText := range expression.ExtractTemplates(s) {
		node, err := expression.Parse(exprText)
		if err != nil {
			v.fail("expression-syntax", path, err.Error())
			continue
		}
		v.checkNode(node, path, localSeen)
	}
}

func (v *validator) checkNode(node expression.Node, path string, localSeen map[string]bool) {
	switch n := node.(type) {
	case *expression.Ref:
		if n.Root == "steps" && len(n.Path) > 0 && n.Path[0].Kind == expression.SegField {
			stepName := n.Path[0].Field
			if !localSeen[stepName] && !v.seen[stepName] {
				v.fail("dangling-step-reference", path, fmt.Sprintf("references step %q which has not executed by this point", stepName))
			}
		}
	case *expression.Bool:
		for _, op := range n.Operands {
			v.checkNode(op, path, localSeen)
		}
	case *expression.Ternary:
		v.checkNode(n.Cond, path, localSeen)
		v.checkNode(n.IfTrue, path, localSeen)
		v.checkNode(n.IfFalse, path, localSeen)
	}
}
