package schema

import "fmt"

// ParseError reports a schema document that Parse could not turn into a model.
//
// RuleID is stable (SCHEMA-PARSE-001 ...); Message is for humans.
// Path is a dotted location inside the document, e.g. "fields[2].type".
type ParseError struct {
	RuleID  string
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func parseErr(ruleID, path, msg string) error {
	return &ParseError{RuleID: ruleID, Path: path, Message: msg}
}
