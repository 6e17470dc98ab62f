package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestRunValidateRetriesAndNeverFlipsSuccessFromOnFailure(t *testing.T) {
	lookup := newFakeLookup()
	stage := &countingStageAction{fail: 1}
	hook := &fakeAction{out: map[string]interface{}{}}
	lookup.register("stage_check", stage)
	lookup.register("repair", hook)

	doc := &WorkflowDocument{
		Name: "validate-retry",
		Steps: []*StepRecord{
			{
				Name:    "v",
				Kind:    KindValidate,
				Stages:  []string{"stage_check"},
				Retry:   1,
				OnFailure: &StepRecord{Name: "repair_step", Kind: KindPython, Action: "repair"},
			},
		},
	}

	result, err := newTestExecutor(lookup).Execute(context.Background(), doc, nil, ExecuteOptions{}, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected eventual success after retry, got failure: %+v", result.StepResults)
	}
	if len(hook.calls) != 1 {
		t.Fatalf("expected on_failure hook invoked exactly once after the first failed attempt, got %d", len(hook.calls))
	}
	if stage.calls != 2 {
		t.Fatalf("expected stage to run twice (initial + retry), got %d", stage.calls)
	}
}

func TestRunValidateFailsWhenRetriesExhausted(t *testing.T) {
	lookup := newFakeLookup()
	stage := &countingStageAction{fail: -1}
	lookup.register("always_fails", stage)

	doc := &WorkflowDocument{
		Name: "validate-exhausted",
		Steps: []*StepRecord{
			{Name: "v", Kind: KindValidate, Stages: []string{"always_fails"}, Retry: 1},
		},
	}

	result, err := newTestExecutor(lookup).Execute(context.Background(), doc, nil, ExecuteOptions{}, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure once retries are exhausted")
	}
	if stage.calls != 2 {
		t.Fatalf("expected 2 attempts (initial + 1 retry), got %d", stage.calls)
	}
}

// countingStageAction fails its first `fail` calls (or every call, if
// fail < 0), then succeeds.
type countingStageAction struct {
	fail  int
	calls int
}

func (a *countingStageAction) Execute(ctx context.Context, operation string, inputs map[string]interface{}) (map[string]interface{}, error) {
	a.calls++
	if a.fail < 0 || a.calls <= a.fail {
		return nil, errors.New("stage failed")
	}
	return map[string]interface{}{}, nil
}

func TestRunSubworkflowPropagatesChildFailure(t *testing.T) {
	lookup := newFakeLookup()
	childFailing := &fakeAction{err: errors.New("child step failed")}
	lookup.register("child_action", childFailing)

	childDoc := &WorkflowDocument{
		Name: "child",
		Steps: []*StepRecord{
			{Name: "only", Kind: KindPython, Action: "child_action"},
		},
	}
	lookup.workflows = map[string]*WorkflowDocument{"child": childDoc}

	doc := &WorkflowDocument{
		Name: "parent",
		Steps: []*StepRecord{
			{Name: "call_child", Kind: KindSubworkflow, Workflow: "child"},
		},
	}

	result, err := newTestExecutor(lookup).Execute(context.Background(), doc, nil, ExecuteOptions{}, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected parent run to fail when sub-workflow fails")
	}
}

func TestIsWholeTemplateRecognizesSingleMarkerOnly(t *testing.T) {
	cases := map[string]bool{
		"${{ inputs.x }}":        true,
		"prefix ${{ inputs.x }}": false,
		"${{ inputs.x }} suffix": false,
		"plain string":           false,
	}
	for in, want := range cases {
		if got := isWholeTemplate(in); got != want {
			t.Errorf("isWholeTemplate(%q) = %v, want %v", in, got, want)
		}
	}
}

// schemaGen is a Generator that also declares an output schema.
type schemaGen struct {
	out    interface{}
	schema map[string]interface{}
}

func (g *schemaGen) Generate(ctx context.Context, genContext map[string]interface{}) (interface{}, error) {
	return g.out, nil
}

func (g *schemaGen) OutputSchema() map[string]interface{} { return g.schema }

func TestRunGenerateChecksDeclaredOutputSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"summary"},
	}

	lookup := newFakeLookup()
	lookup.generators = map[string]Generator{
		"good": &schemaGen{out: map[string]interface{}{"summary": "done"}, schema: schema},
		"bad":  &schemaGen{out: map[string]interface{}{"other": 1}, schema: schema},
	}

	doc := &WorkflowDocument{
		Name: "gen-ok",
		Steps: []*StepRecord{
			{Name: "g", Kind: KindGenerate, Generator: "good"},
		},
	}
	result, err := newTestExecutor(lookup).Execute(context.Background(), doc, nil, ExecuteOptions{}, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected conforming output to pass, got %+v", result.StepResults)
	}

	doc = &WorkflowDocument{
		Name: "gen-bad",
		Steps: []*StepRecord{
			{Name: "g", Kind: KindGenerate, Generator: "bad"},
		},
	}
	result, err = newTestExecutor(lookup).Execute(context.Background(), doc, nil, ExecuteOptions{}, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected schema violation to fail the step")
	}
	if got := result.StepResults[0].Error; got == "" {
		t.Fatalf("expected a step error describing the schema violation")
	}
}
