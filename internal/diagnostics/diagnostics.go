// Package diagnostics holds the compile-time error type shared by the
// lexer, parser and code generator.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/ember/internal/token"
)

// ErrorCode groups compile errors by the stage that produced them.
type ErrorCode string

const (
	ErrLex     ErrorCode = "L001"
	ErrSyntax  ErrorCode = "P001"
	ErrClass   ErrorCode = "P002"
	ErrCodegen ErrorCode = "C001"
	ErrSymbol  ErrorCode = "C002"

	// ErrIncomplete is a syntax error caused by reaching end of input.
	ErrIncomplete ErrorCode = "P003"
)

// CompileError reports why a source unit could not be turned into a Binary.
// A script that produces one never starts running.
type CompileError struct {
	Code    ErrorCode
	File    string
	Pos     token.Pos
	Message string
}

func NewError(code ErrorCode, pos token.Pos, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (e *CompileError) Error() string {
	file := e.File
	if file == "" {
		file = "<script>"
	}
	if e.Pos.Line == 0 {
		return fmt.Sprintf("%s: [%s] %s", file, e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: [%s] %s", file, e.Pos.Line, e.Pos.Column, e.Code, e.Message)
}

// WithFile sets the file name if it is not already set and returns e.
func (e *CompileError) WithFile(file string) *CompileError {
	if e.File == "" {
		e.File = file
	}
	return e
}
