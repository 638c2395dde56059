package model

import (
	"errors"
	"fmt"

	"xdao.co/rcf/cidutil"
	"xdao.co/rcf/rcf"
	"xdao.co/rcf/schema"
	"xdao.co/rcf/storage"
)

type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrParse                ErrorCode = "PARSE_ERROR"
	ErrPrecondition         ErrorCode = "PRECONDITION"
	ErrNotCanonical         ErrorCode = "NOT_CANONICAL"
	ErrUnsupportedAlgorithm ErrorCode = "UNSUPPORTED_ALGORITHM"
	ErrInvalidCID           ErrorCode = "INVALID_CID"
	ErrNotFound             ErrorCode = "NOT_FOUND"
	ErrCIDMismatch          ErrorCode = "CID_MISMATCH"
	ErrImmutable            ErrorCode = "IMMUTABLE"
	ErrInternal             ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
// RuleID carries the canonicalizer's rule when one applies.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Code, e.RuleID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// MapError projects any error from the rcf, cidutil or storage packages onto
// a CodedError. It returns nil for a nil error.
func MapError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	var re *rcf.Error
	if errors.As(err, &re) {
		code := ErrInternal
		switch re.Kind {
		case rcf.KindParse:
			code = ErrParse
		case rcf.KindPrecondition:
			code = ErrPrecondition
		case rcf.KindCanonical:
			code = ErrNotCanonical
		case rcf.KindDigest:
			code = ErrUnsupportedAlgorithm
		}
		return &CodedError{Code: code, RuleID: re.RuleID, Message: err.Error()}
	}
	var pe *schema.ParseError
	if errors.As(err, &pe) {
		return &CodedError{Code: ErrParse, RuleID: pe.RuleID, Message: err.Error()}
	}
	switch {
	case errors.Is(err, storage.ErrNotCanonical):
		return NewError(ErrNotCanonical, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return NewError(ErrNotFound, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return NewError(ErrCIDMismatch, err.Error())
	case errors.Is(err, storage.ErrInvalidCID), errors.Is(err, cidutil.ErrInvalidFingerprint):
		return NewError(ErrInvalidCID, err.Error())
	case errors.Is(err, storage.ErrImmutable):
		return NewError(ErrImmutable, err.Error())
	case errors.Is(err, cidutil.ErrUnsupportedAlgorithm):
		return NewError(ErrUnsupportedAlgorithm, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
