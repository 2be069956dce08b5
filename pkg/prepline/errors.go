package prepline

import "fmt"

// ConfigError reports an invalid pipeline configuration: unknown processor
// or filter type, missing required fields, malformed split expressions or an
// output column map referencing a column absent from the final schema.
// Raised at load/build time, before any dataset IO.
type ConfigError struct {
	Section string // e.g. "pipeline[2]", "filters[0]", "columns"
	Msg     string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Section, e.Msg, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Section, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SchemaError reports a schema-inference failure: a processor's declared
// feature transformation conflicts with an existing column, or a processor
// or filter references a column not yet produced.
type SchemaError struct {
	Step string // "pipeline[1] (tokenizer)" or "filters[0] (expr)"
	Msg  string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %s: %v", e.Step, e.Msg, e.Err)
	}
	return fmt.Sprintf("schema: %s: %s", e.Step, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// EvaluationError reports an expression failure on a specific record.
type EvaluationError struct {
	Expression  string
	RecordIndex int
	Err         error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("eval %q at record %d: %v", e.Expression, e.RecordIndex, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// TemplateError reports a template rendering failure on a specific record.
type TemplateError struct {
	Source      string
	RecordIndex int
	Err         error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q at record %d: %v", e.Source, e.RecordIndex, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// ResourceError reports a failure to resolve an external resource such as a
// dataset directory or a pretrained checkpoint.
type ResourceError struct {
	Identifier string
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %q: %v", e.Identifier, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
