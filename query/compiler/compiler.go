// Package compiler compiles query expression trees into statement text.
package compiler

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/streamql/streamql-go/query/ast"
)

// DefaultTimeFormat renders time.Time literals when Options.TimeFormat
// is unset.
const DefaultTimeFormat = "2006-01-02T15:04:05.000"

// Casing controls how column names are normalized in emitted text.
type Casing int

const (
	// CasingUpper upper-cases column names.
	CasingUpper Casing = iota
	// CasingAsIs emits column names exactly as declared.
	CasingAsIs
)

// Options configure one compile call.
type Options struct {
	// QualifySource prefixes every column reference with the source
	// alias. Required for multi-source queries; the qualification is
	// consistent for all members of the same source within one call.
	QualifySource bool
	// SourceAlias overrides the alias used for qualification. When
	// empty the root lambda's parameter name is used.
	SourceAlias string
	// Casing normalizes column names.
	Casing Casing
	// TimeFormat is the layout for temporal literals.
	TimeFormat string
}

// Compile walks the expression tree and emits a statement text
// fragment. A root lambda is unwrapped: its parameter becomes the row
// scope and member accesses on it emit bare column references. It
// fails before any network activity for node kinds outside the closed
// set and for members with no column mapping.
func Compile(expr ast.Expr, opts Options) (string, error) {
	if opts.TimeFormat == "" {
		opts.TimeFormat = DefaultTimeFormat
	}

	p := &printer{
		opts: opts,
		// Scoped to this compile call only. Never shared across
		// calls or goroutines.
		printed: map[*ast.Parameter]struct{}{},
	}

	root := expr
	if l, ok := expr.(*ast.Lambda); ok {
		p.printed[l.Param] = struct{}{}
		if p.opts.QualifySource && p.opts.SourceAlias == "" {
			p.opts.SourceAlias = l.Param.Name
		}
		root = l.Body
	}

	if err := p.visit(root, 0); err != nil {
		return "", err
	}
	return p.sb.String(), nil
}

type printer struct {
	sb      strings.Builder
	opts    Options
	printed map[*ast.Parameter]struct{}
}

// Operator precedence, loosest first. Primary expressions sit above
// every operator.
const primaryPrec = 8

var binaryPrec = map[ast.BinaryOperator]int{
	ast.OpOr:        1,
	ast.OpAnd:       2,
	ast.OpEqual:     3,
	ast.OpNotEqual:  3,
	ast.OpLess:      4,
	ast.OpLessEq:    4,
	ast.OpGreater:   4,
	ast.OpGreaterEq: 4,
	ast.OpAdd:       5,
	ast.OpSub:       5,
	ast.OpMul:       6,
	ast.OpDiv:       6,
	ast.OpMod:       6,
}

var binaryTokens = map[ast.BinaryOperator]string{
	ast.OpOr:        "OR",
	ast.OpAnd:       "AND",
	ast.OpEqual:     "=",
	ast.OpNotEqual:  "!=",
	ast.OpLess:      "<",
	ast.OpLessEq:    "<=",
	ast.OpGreater:   ">",
	ast.OpGreaterEq: ">=",
	ast.OpAdd:       "+",
	ast.OpSub:       "-",
	ast.OpMul:       "*",
	ast.OpDiv:       "/",
	ast.OpMod:       "%",
}

// visit emits e, parenthesizing only when e binds looser than the
// context requires, so the emitted text parses back to the same tree.
func (p *printer) visit(e ast.Expr, minPrec int) error {
	switch n := e.(type) {
	case *ast.BinaryOp:
		return p.visitBinary(n, minPrec)
	case *ast.UnaryOp:
		return p.visitUnary(n, minPrec)
	case *ast.MemberAccess:
		return p.visitMember(n)
	case *ast.MethodCall:
		return p.visitCall(n)
	case *ast.Constant:
		return p.visitConstant(n)
	case *ast.Parameter:
		p.sb.WriteString(n.Name)
		return nil
	case *ast.Lambda:
		return p.visitLambda(n)
	default:
		return &UnsupportedExpressionError{NodeKind: e.Kind()}
	}
}

func (p *printer) visitBinary(n *ast.BinaryOp, minPrec int) error {
	token, ok := binaryTokens[n.Op]
	if !ok {
		return fmt.Errorf("%w: unknown binary operator %q", ErrCompile, n.Op)
	}

	prec := binaryPrec[n.Op]
	paren := prec < minPrec
	if paren {
		p.sb.WriteString("(")
	}
	if err := p.visit(n.Left, prec); err != nil {
		return err
	}
	p.sb.WriteString(" " + token + " ")
	// Right operand of equal precedence keeps its parentheses so
	// a - (b - c) survives the trip.
	if err := p.visit(n.Right, prec+1); err != nil {
		return err
	}
	if paren {
		p.sb.WriteString(")")
	}
	return nil
}

func (p *printer) visitUnary(n *ast.UnaryOp, minPrec int) error {
	const unaryPrec = 7
	paren := unaryPrec < minPrec
	if paren {
		p.sb.WriteString("(")
	}
	switch n.Op {
	case ast.OpNot:
		p.sb.WriteString("NOT ")
	case ast.OpNeg:
		p.sb.WriteString("-")
	default:
		return fmt.Errorf("%w: unknown unary operator %q", ErrCompile, n.Op)
	}
	if err := p.visit(n.Operand, primaryPrec); err != nil {
		return err
	}
	if paren {
		p.sb.WriteString(")")
	}
	return nil
}

func (p *printer) visitMember(n *ast.MemberAccess) error {
	switch target := n.Target.(type) {
	case *ast.Parameter:
		if p.opts.QualifySource {
			alias := p.opts.SourceAlias
			if alias == "" {
				alias = target.Name
			}
			p.sb.WriteString(alias)
			p.sb.WriteString(".")
		}
		p.sb.WriteString(p.columnName(n.Member))
		return nil
	case *ast.MemberAccess:
		// Struct dereference on a nested record.
		if err := p.visitMember(target); err != nil {
			return err
		}
		p.sb.WriteString("->")
		p.sb.WriteString(p.columnName(n.Member))
		return nil
	default:
		return &InvalidMemberError{
			Member: n.Member,
			Reason: fmt.Sprintf("target is a %s, not a row parameter or nested member", n.Target.Kind()),
		}
	}
}

func (p *printer) columnName(member string) string {
	if p.opts.Casing == CasingAsIs {
		return member
	}
	return strings.ToUpper(member)
}

func (p *printer) visitCall(n *ast.MethodCall) error {
	p.sb.WriteString(FunctionName(n.Method))
	p.sb.WriteString("(")
	first := true
	if n.Receiver != nil {
		if err := p.visit(n.Receiver, 0); err != nil {
			return err
		}
		first = false
	}
	for _, arg := range n.Args {
		if !first {
			p.sb.WriteString(", ")
		}
		first = false
		if err := p.visit(arg, 0); err != nil {
			return err
		}
	}
	p.sb.WriteString(")")
	return nil
}

// visitLambda prints an inline lambda argument, such as the transform
// of an ARRAY built-in. The parameter declaration is printed at most
// once per compile call, however many sub-expressions reference it.
func (p *printer) visitLambda(n *ast.Lambda) error {
	if _, declared := p.printed[n.Param]; !declared {
		p.printed[n.Param] = struct{}{}
		p.sb.WriteString("(")
		p.sb.WriteString(n.Param.Name)
		p.sb.WriteString(") => ")
	}
	return p.visit(n.Body, 0)
}

func (p *printer) visitConstant(n *ast.Constant) error {
	text, err := p.formatValue(n.Value)
	if err != nil {
		return err
	}
	p.sb.WriteString(text)
	return nil
}

func (p *printer) formatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return quoteString(val.Format(p.opts.TimeFormat)), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		var sb strings.Builder
		sb.WriteString("ARRAY[")
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			text, err := p.formatValue(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			sb.WriteString(text)
		}
		sb.WriteString("]")
		return sb.String(), nil
	}

	return "", fmt.Errorf("%w: unsupported constant type %T", ErrCompile, v)
}

// quoteString single-quotes a text literal, doubling embedded quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
