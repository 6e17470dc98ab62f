package workflow

import (
	"encoding/json"
	"fmt"
)

// SchemaGenerator is an optional extension of Generator. A generator
// that also declares an output schema has every Generate result
// checked against it before the executor records the step output.
type SchemaGenerator interface {
	Generator

	OutputSchema() map[string]interface{}
}

// OutputSchemaError reports a generator output that does not match the
// generator's declared schema. Path is a dotted/bracketed locator into
// the offending value; Keyword names the failed constraint.
type OutputSchemaError struct {
	Path    string
	Keyword string
	Message string
}

func (e *OutputSchemaError) Error() string {
	return fmt.Sprintf("output schema violation at %s (%s): %s", e.Path, e.Keyword, e.Message)
}

// CheckOutputSchema validates data against a JSON-Schema-shaped map
// supporting the subset generators declare: type, required,
// properties, items, and enum. Properties absent from the schema pass
// through unchecked.
func CheckOutputSchema(schema map[string]interface{}, data interface{}) error {
	return checkSchema(schema, data, "$")
}

func checkSchema(schema map[string]interface{}, data interface{}, path string) error {
	declared, ok := schema["type"].(string)
	if !ok {
		return nil
	}
	if err := checkType(declared, data, path); err != nil {
		return err
	}

	switch declared {
	case "object":
		return checkObject(schema, data.(map[string]interface{}), path)
	case "array":
		return checkArray(schema, data.([]interface{}), path)
	case "string":
		return checkEnum(schema, data.(string), path)
	}
	return nil
}

func checkType(declared string, data interface{}, path string) error {
	mismatch := func() error {
		return &OutputSchemaError{Path: path, Keyword: "type", Message: fmt.Sprintf("expected %s, got %T", declared, data)}
	}

	switch declared {
	case "object":
		if _, ok := data.(map[string]interface{}); !ok {
			return mismatch()
		}
	case "array":
		if _, ok := data.([]interface{}); !ok {
			return mismatch()
		}
	case "string":
		if _, ok := data.(string); !ok {
			return mismatch()
		}
	case "boolean":
		if _, ok := data.(bool); !ok {
			return mismatch()
		}
	case "number":
		switch data.(type) {
		case float64, float32, int, int64:
		default:
			return mismatch()
		}
	case "integer":
		switch n := data.(type) {
		case int, int64:
		case float64:
			if n != float64(int64(n)) {
				return &OutputSchemaError{Path: path, Keyword: "type", Message: fmt.Sprintf("expected integer, got %v", n)}
			}
		default:
			return mismatch()
		}
	default:
		return &OutputSchemaError{Path: path, Keyword: "type", Message: fmt.Sprintf("unsupported schema type %q", declared)}
	}
	return nil
}

func checkObject(schema map[string]interface{}, obj map[string]interface{}, path string) error {
	if required, ok := schema["required"].([]interface{}); ok {
		for _, raw := range required {
			field, ok := raw.(string)
			if !ok {
				continue
			}
			if _, exists := obj[field]; !exists {
				return &OutputSchemaError{Path: path, Keyword: "required", Message: fmt.Sprintf("missing required field %q", field)}
			}
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	for field, value := range obj {
		propSchema, ok := properties[field].(map[string]interface{})
		if !ok {
			continue
		}
		if err := checkSchema(propSchema, value, path+"."+field); err != nil {
			return err
		}
	}
	return nil
}

func checkArray(schema map[string]interface{}, arr []interface{}, path string) error {
	items, ok := schema["items"].(map[string]interface{})
	if !ok {
		return nil
	}
	for i, item := range arr {
		if err := checkSchema(items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkEnum(schema map[string]interface{}, value string, path string) error {
	enum, ok := schema["enum"].([]interface{})
	if !ok {
		return nil
	}
	for _, allowed := range enum {
		if s, ok := allowed.(string); ok && s == value {
			return nil
		}
	}
	allowedJSON, _ := json.Marshal(enum)
	return &OutputSchemaError{Path: path, Keyword: "enum", Message: fmt.Sprintf("value %q not in allowed values %s", value, allowedJSON)}
}
