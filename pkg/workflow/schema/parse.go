package schema

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	"github.com/windlass-dev/windlass/pkg/workflow"
)

// Parse decodes YAML (or JSON, which is a YAML subset) bytes into a
// WorkflowDocument. Unknown top-level and nested keys are rejected,
// the version is checked against workflow.SupportedVersions, and every
// step's required fields are enforced per its kind. Template strings
// (`when`, expression-bearing fields) are kept verbatim — never
// pre-evaluated.
func Parse(path string, data []byte) (*workflow.WorkflowDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc workflow.WorkflowDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &werrors.ParseError{Path: path, Reason: err.Error(), Cause: err}
	}

	if !workflow.SupportedVersions[doc.Version] {
		return nil, &werrors.ParseError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported version %q; supported versions: %s", doc.Version, supportedVersionList()),
		}
	}
	if doc.Name == "" {
		return nil, &werrors.ParseError{Path: path, Reason: "missing required field: name"}
	}
	if len(doc.Steps) == 0 {
		return nil, &werrors.ParseError{Path: path, Reason: "workflow must declare at least one step"}
	}

	for i, step := range doc.Steps {
		if err := validateStepFields(step, fmt.Sprintf("steps[%d]", i)); err != nil {
			return nil, &werrors.ParseError{Path: path, Reason: err.Error(), Cause: err}
		}
	}
	for name, check := range namedPreflight(doc.Preflight) {
		if len(check.Command) == 0 {
			return nil, &werrors.ParseError{Path: path, Reason: fmt.Sprintf("preflight check %q: missing required field: command", name)}
		}
	}

	return &doc, nil
}

func namedPreflight(checks []workflow.PreflightCheck) map[string]workflow.PreflightCheck {
	out := make(map[string]workflow.PreflightCheck, len(checks))
	for _, c := range checks {
		out[c.Name] = c
	}
	return out
}

func supportedVersionList() []string {
	out := make([]string, 0, len(workflow.SupportedVersions))
	for v := range workflow.SupportedVersions {
		out = append(out, v)
	}
	return out
}

// validateStepFields enforces the required-field set for step.Kind,
// recursing into nested steps (validate's on_failure, branch options,
// parallel children).
func validateStepFields(step *workflow.StepRecord, path string) error {
	if step == nil {
		return fmt.Errorf("%s: step is nil", path)
	}
	if step.Name == "" {
		return fmt.Errorf("%s: missing required field: name", path)
	}
	if step.Kind == "" {
		return fmt.Errorf("%s: missing required field: type", path)
	}

	switch step.Kind {
	case workflow.KindPython:
		if step.Action == "" {
			return fmt.Errorf("%s: python step requires 'action'", path)
		}
	case workflow.KindAgent:
		if step.Agent == "" {
			return fmt.Errorf("%s: agent step requires 'agent'", path)
		}
	case workflow.KindGenerate:
		if step.Generator == "" {
			return fmt.Errorf("%s: generate step requires 'generator'", path)
		}
	case workflow.KindValidate:
		if len(step.Stages) == 0 {
			return fmt.Errorf("%s: validate step requires 'stages'", path)
		}
		if step.OnFailure != nil {
			if err := validateStepFields(step.OnFailure, path+".on_failure"); err != nil {
				return err
			}
		}
	case workflow.KindSubworkflow:
		if step.Workflow == "" {
			return fmt.Errorf("%s: subworkflow step requires 'workflow'", path)
		}
	case workflow.KindBranch:
		if len(step.Options) == 0 {
			return fmt.Errorf("%s: branch step requires at least one option", path)
		}
		for i, opt := range step.Options {
			optPath := fmt.Sprintf("%s.options[%d]", path, i)
			if opt.When == "" {
				return fmt.Errorf("%s: missing required field: when", optPath)
			}
			if err := validateStepFields(opt.Step, optPath+".step"); err != nil {
				return err
			}
		}
	case workflow.KindParallel:
		if len(step.Steps) == 0 {
			return fmt.Errorf("%s: parallel step requires at least one child step", path)
		}
		for i, child := range step.Steps {
			if err := validateStepFields(child, fmt.Sprintf("%s.steps[%d]", path, i)); err != nil {
				return err
			}
		}
	case workflow.KindCheckpoint:
		if step.CheckpointID == "" {
			return fmt.Errorf("%s: checkpoint step requires 'id'", path)
		}
	default:
		return fmt.Errorf("%s: unknown step type %q", path, step.Kind)
	}
	return nil
}
