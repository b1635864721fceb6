package compiler

import (
	"errors"
	"fmt"

	"github.com/streamql/streamql-go/query/ast"
)

// ErrCompile is the common sentinel wrapped by every compile-time
// failure, so callers can test errors.Is(err, compiler.ErrCompile)
// before any network activity has happened.
var ErrCompile = errors.New("compile error")

// UnsupportedExpressionError reports an expression node kind outside
// the closed set the compiler understands.
type UnsupportedExpressionError struct {
	NodeKind ast.NodeKind
}

func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("unsupported expression kind %q", e.NodeKind)
}

func (e *UnsupportedExpressionError) Unwrap() error { return ErrCompile }

// InvalidMemberError reports a member access with no resolvable column
// mapping.
type InvalidMemberError struct {
	Member string
	Reason string
}

func (e *InvalidMemberError) Error() string {
	return fmt.Sprintf("member %q has no column mapping: %s", e.Member, e.Reason)
}

func (e *InvalidMemberError) Unwrap() error { return ErrCompile }

// InvalidWindowError reports a window specification that cannot be
// rendered as valid statement text.
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window spec: %s", e.Reason)
}

func (e *InvalidWindowError) Unwrap() error { return ErrCompile }
