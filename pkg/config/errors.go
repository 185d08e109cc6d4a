package config

import "fmt"

// FieldError reports one invalid or missing configuration value, named the
// way the teacher's ValidationError carries component/field/cause context.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Error aggregates every FieldError found while loading configuration, so
// an operator sees every problem in one run instead of fixing them one at
// a time.
type Error struct {
	Fields []*FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("ConfigInvalid: %s", e.Fields[0])
	}
	msg := fmt.Sprintf("ConfigInvalid: %d problems found:", len(e.Fields))
	for _, f := range e.Fields {
		msg += fmt.Sprintf("\n  - %s", f)
	}
	return msg
}

func (e *Error) Add(field, msg string) {
	e.Fields = append(e.Fields, &FieldError{Field: field, Msg: msg})
}

func (e *Error) HasErrors() bool { return len(e.Fields) > 0 }
