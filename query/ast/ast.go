// Package ast defines the typed query expression tree.
package ast

// Expr is a node in a query expression tree. The set of node kinds is
// closed: the compiler rejects anything it does not recognize.
type Expr interface {
	Kind() NodeKind
}

// NodeKind identifies the variant of an expression node.
type NodeKind string

const (
	KindLambda       NodeKind = "Lambda"
	KindParameter    NodeKind = "Parameter"
	KindMemberAccess NodeKind = "MemberAccess"
	KindMethodCall   NodeKind = "MethodCall"
	KindBinaryOp     NodeKind = "BinaryOp"
	KindUnaryOp      NodeKind = "UnaryOp"
	KindConstant     NodeKind = "Constant"
)

// Lambda binds a single parameter over a body expression.
type Lambda struct {
	Param *Parameter
	Body  Expr
}

func (l *Lambda) Kind() NodeKind { return KindLambda }

// Parameter is a lambda-bound variable. Identity is the pointer: two
// references to the same *Parameter refer to the same binding.
type Parameter struct {
	Name string
}

func (p *Parameter) Kind() NodeKind { return KindParameter }

// MemberAccess reads a named member of its target, typically a record
// field on a lambda parameter.
type MemberAccess struct {
	Target Expr
	Member string
}

func (m *MemberAccess) Kind() NodeKind { return KindMemberAccess }

// MethodCall invokes a named method on a receiver expression.
type MethodCall struct {
	Receiver Expr
	Method   string
	Args     []Expr
}

func (m *MethodCall) Kind() NodeKind { return KindMethodCall }

// BinaryOp combines two operands with an infix operator.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

func (b *BinaryOp) Kind() NodeKind { return KindBinaryOp }

// UnaryOp applies a prefix operator to a single operand.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Expr
}

func (u *UnaryOp) Kind() NodeKind { return KindUnaryOp }

// Constant is a literal value captured from the caller.
type Constant struct {
	Value interface{}
}

func (c *Constant) Kind() NodeKind { return KindConstant }

// BinaryOperator represents infix operators
type BinaryOperator string

const (
	OpOr        BinaryOperator = "||"
	OpAnd       BinaryOperator = "&&"
	OpEqual     BinaryOperator = "=="
	OpNotEqual  BinaryOperator = "!="
	OpLess      BinaryOperator = "<"
	OpLessEq    BinaryOperator = "<="
	OpGreater   BinaryOperator = ">"
	OpGreaterEq BinaryOperator = ">="
	OpAdd       BinaryOperator = "+"
	OpSub       BinaryOperator = "-"
	OpMul       BinaryOperator = "*"
	OpDiv       BinaryOperator = "/"
	OpMod       BinaryOperator = "%"
)

// UnaryOperator represents prefix operators
type UnaryOperator string

const (
	OpNot UnaryOperator = "!"
	OpNeg UnaryOperator = "-"
)

// Param creates a new lambda parameter.
func Param(name string) *Parameter {
	return &Parameter{Name: name}
}

// NewLambda creates a lambda binding param over body.
func NewLambda(param *Parameter, body Expr) *Lambda {
	return &Lambda{Param: param, Body: body}
}

// Member creates a member access on target.
func Member(target Expr, member string) *MemberAccess {
	return &MemberAccess{Target: target, Member: member}
}

// Call creates a method call on receiver.
func Call(receiver Expr, method string, args ...Expr) *MethodCall {
	return &MethodCall{Receiver: receiver, Method: method, Args: args}
}

// Const creates a constant literal.
func Const(value interface{}) *Constant {
	return &Constant{Value: value}
}

// Binary creates a binary operation.
func Binary(op BinaryOperator, left, right Expr) *BinaryOp {
	return &BinaryOp{Op: op, Left: left, Right: right}
}

// And combines two predicates with logical AND.
func And(left, right Expr) *BinaryOp { return Binary(OpAnd, left, right) }

// Or combines two predicates with logical OR.
func Or(left, right Expr) *BinaryOp { return Binary(OpOr, left, right) }

// Equal compares two operands for equality.
func Equal(left, right Expr) *BinaryOp { return Binary(OpEqual, left, right) }

// Not negates a predicate.
func Not(operand Expr) *UnaryOp { return &UnaryOp{Op: OpNot, Operand: operand} }

// Neg negates a numeric operand.
func Neg(operand Expr) *UnaryOp { return &UnaryOp{Op: OpNeg, Operand: operand} }
