// Package builder assembles compiled fragments into complete statements.
package builder

import (
	"fmt"
	"strings"
	"time"

	"github.com/streamql/streamql-go/query/ast"
	"github.com/streamql/streamql-go/query/compiler"
)

// StatementKind distinguishes one-shot statements from streaming queries.
type StatementKind string

const (
	// KindStatement is a one-shot administrative statement.
	KindStatement StatementKind = "Statement"
	// KindPushQuery is a continuous query that streams new rows as
	// they occur.
	KindPushQuery StatementKind = "PushQuery"
	// KindPullQuery is a point-in-time query returning a fixed
	// result set.
	KindPullQuery StatementKind = "PullQuery"
)

// ContentType is the request content type for statements.
const ContentType = "application/vnd.streamql.v1+json"

// Statement is a fully built, immutable statement. It may be executed
// any number of times; each execution is independent.
type Statement struct {
	SQL         string
	ContentType string
	Kind        StatementKind
}

// IsStreaming reports whether the statement opens a streaming response.
func (s *Statement) IsStreaming() bool {
	return s.Kind == KindPushQuery || s.Kind == KindPullQuery
}

// Stmt wraps raw statement text as a one-shot statement.
func Stmt(sql string) *Statement {
	return &Statement{SQL: sql, ContentType: ContentType, Kind: KindStatement}
}

// QueryBuilder builds push and pull queries against a single source.
type QueryBuilder struct {
	source     string
	alias      string
	projection ast.Expr
	columns    []string
	predicates []ast.Expr
	window     *ast.WindowSpec
	groupBy    []ast.Expr
	having     ast.Expr
	push       bool
	opts       compiler.Options
}

// From creates a query builder reading from the named source.
func From(source string) *QueryBuilder {
	return &QueryBuilder{source: source}
}

// As sets the source alias and turns on alias qualification for
// compiled column references.
func (q *QueryBuilder) As(alias string) *QueryBuilder {
	q.alias = alias
	q.opts.QualifySource = true
	q.opts.SourceAlias = alias
	return q
}

// Select sets the projection from a lambda over the source record.
func (q *QueryBuilder) Select(projection ast.Expr) *QueryBuilder {
	q.projection = projection
	return q
}

// SelectColumns sets the projection to an explicit column list.
func (q *QueryBuilder) SelectColumns(columns ...string) *QueryBuilder {
	q.columns = columns
	return q
}

// Where adds a predicate. Multiple predicates are AND-combined in the
// order they were added.
func (q *QueryBuilder) Where(predicate ast.Expr) *QueryBuilder {
	q.predicates = append(q.predicates, predicate)
	return q
}

// WindowedBy sets the aggregation window.
func (q *QueryBuilder) WindowedBy(window *ast.WindowSpec) *QueryBuilder {
	q.window = window
	return q
}

// GroupBy sets the grouping expressions.
func (q *QueryBuilder) GroupBy(exprs ...ast.Expr) *QueryBuilder {
	q.groupBy = exprs
	return q
}

// Having sets the post-aggregation predicate.
func (q *QueryBuilder) Having(predicate ast.Expr) *QueryBuilder {
	q.having = predicate
	return q
}

// EmitChanges marks the query as a continuous push query.
func (q *QueryBuilder) EmitChanges() *QueryBuilder {
	q.push = true
	return q
}

// WithOptions overrides the compile options used for every fragment.
func (q *QueryBuilder) WithOptions(opts compiler.Options) *QueryBuilder {
	if q.opts.QualifySource {
		opts.QualifySource = true
		opts.SourceAlias = q.opts.SourceAlias
	}
	q.opts = opts
	return q
}

// Build assembles the statement in fixed clause order. Building never
// performs I/O; every failure is a compile error surfaced before any
// network activity.
func (q *QueryBuilder) Build() (*Statement, error) {
	if q.source == "" {
		return nil, fmt.Errorf("%w: query has no source", compiler.ErrCompile)
	}

	var sb strings.Builder

	sb.WriteString("SELECT ")
	switch {
	case q.projection != nil:
		text, err := compiler.Compile(q.projection, q.opts)
		if err != nil {
			return nil, err
		}
		sb.WriteString(text)
	case len(q.columns) > 0:
		sb.WriteString(strings.Join(q.columns, ", "))
	default:
		sb.WriteString("*")
	}

	sb.WriteString(" FROM ")
	sb.WriteString(q.source)
	if q.alias != "" {
		sb.WriteString(" " + q.alias)
	}

	if len(q.predicates) > 0 {
		predicate := q.predicates[0]
		for _, p := range q.predicates[1:] {
			predicate = joinPredicates(predicate, p)
		}
		text, err := compiler.Compile(predicate, q.opts)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(text)
	}

	if q.window != nil {
		text, err := windowText(q.window)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" WINDOW ")
		sb.WriteString(text)
	}

	if len(q.groupBy) > 0 {
		parts := make([]string, len(q.groupBy))
		for i, g := range q.groupBy {
			text, err := compiler.Compile(g, q.opts)
			if err != nil {
				return nil, err
			}
			parts[i] = text
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.having != nil {
		text, err := compiler.Compile(q.having, q.opts)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" HAVING ")
		sb.WriteString(text)
	}

	kind := KindPullQuery
	if q.push {
		sb.WriteString(" EMIT CHANGES")
		kind = KindPushQuery
	}
	sb.WriteString(";")

	return &Statement{SQL: sb.String(), ContentType: ContentType, Kind: kind}, nil
}

// joinPredicates ANDs two predicates, merging lambdas so both bodies
// share one bound parameter.
func joinPredicates(left, right ast.Expr) ast.Expr {
	ll, lok := left.(*ast.Lambda)
	rl, rok := right.(*ast.Lambda)
	if lok && rok {
		body := ast.And(ll.Body, rebind(rl.Body, rl.Param, ll.Param))
		return ast.NewLambda(ll.Param, body)
	}
	return ast.And(left, right)
}

// rebind substitutes references to one parameter with another.
func rebind(e ast.Expr, from, to *ast.Parameter) ast.Expr {
	switch n := e.(type) {
	case *ast.Parameter:
		if n == from {
			return to
		}
		return n
	case *ast.MemberAccess:
		return ast.Member(rebind(n.Target, from, to), n.Member)
	case *ast.MethodCall:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = rebind(a, from, to)
		}
		return ast.Call(rebind(n.Receiver, from, to), n.Method, args...)
	case *ast.BinaryOp:
		return ast.Binary(n.Op, rebind(n.Left, from, to), rebind(n.Right, from, to))
	case *ast.UnaryOp:
		return &ast.UnaryOp{Op: n.Op, Operand: rebind(n.Operand, from, to)}
	case *ast.Lambda:
		return ast.NewLambda(n.Param, rebind(n.Body, from, to))
	default:
		return e
	}
}

func windowText(w *ast.WindowSpec) (string, error) {
	if w.Size <= 0 {
		return "", &compiler.InvalidWindowError{Reason: "window size must be positive"}
	}
	// The statement grammar's smallest unit is a millisecond; anything
	// finer would silently render as a truncated duration.
	for _, d := range []time.Duration{w.Size, w.Advance, w.Retention} {
		if d%time.Millisecond != 0 {
			return "", &compiler.InvalidWindowError{Reason: "window durations must be whole milliseconds"}
		}
	}

	var sb strings.Builder
	switch w.Kind {
	case ast.WindowTumbling:
		sb.WriteString("TUMBLING (SIZE " + durationText(w.Size))
	case ast.WindowHopping:
		if w.Advance <= 0 {
			return "", &compiler.InvalidWindowError{Reason: "hopping window requires an advance interval"}
		}
		if w.Advance > w.Size {
			return "", &compiler.InvalidWindowError{Reason: "hopping window advance exceeds its size"}
		}
		sb.WriteString("HOPPING (SIZE " + durationText(w.Size) + ", ADVANCE BY " + durationText(w.Advance))
	case ast.WindowSession:
		sb.WriteString("SESSION (" + durationText(w.Size))
	default:
		return "", &compiler.InvalidWindowError{Reason: fmt.Sprintf("unknown window kind %q", w.Kind)}
	}

	if w.Retention > 0 {
		sb.WriteString(", RETENTION " + durationText(w.Retention))
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// durationText renders a duration in the largest whole unit the
// statement grammar accepts.
func durationText(d time.Duration) string {
	type unit struct {
		d    time.Duration
		name string
	}
	units := []unit{
		{24 * time.Hour, "DAYS"},
		{time.Hour, "HOURS"},
		{time.Minute, "MINUTES"},
		{time.Second, "SECONDS"},
		{time.Millisecond, "MILLISECONDS"},
	}
	for _, u := range units {
		if d%u.d == 0 && d >= u.d {
			return fmt.Sprintf("%d %s", d/u.d, u.name)
		}
	}
	return fmt.Sprintf("%d MILLISECONDS", d/time.Millisecond)
}
