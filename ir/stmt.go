package ir

import (
	"fmt"
	"strings"

	"github.com/barrowsr/ptaint/internal/slices"
)

// Stmt is the statement sum. Analyses dispatch on the concrete type with a
// type switch; there is no visitor hierarchy.
type Stmt interface {
	// Index is the statement's position in its method body.
	Index() int
	// Def returns the variable assigned by this statement, or nil.
	Def() *Var
	// Uses returns the variables read by this statement.
	Uses() []*Var
	String() string

	setParent(m *Method, index int)
}

// stmtBase carries the bookkeeping shared by all statements.
type stmtBase struct {
	method *Method
	index  int
}

func (s *stmtBase) Index() int      { return s.index }
func (s *stmtBase) Method() *Method { return s.method }
func (s *stmtBase) Def() *Var       { return nil }
func (s *stmtBase) Uses() []*Var    { return nil }

func (s *stmtBase) setParent(m *Method, index int) {
	s.method = m
	s.index = index
}

// New is an allocation x = new T().
type New struct {
	stmtBase
	Result *Var
	T      Type
}

func (s *New) Def() *Var      { return s.Result }
func (s *New) String() string { return fmt.Sprintf("%s = new %s", s.Result.Name, s.T) }

// AssignLiteral is x = c for an integer constant c.
type AssignLiteral struct {
	stmtBase
	Result *Var
	Value  int64
}

func (s *AssignLiteral) Def() *Var      { return s.Result }
func (s *AssignLiteral) String() string { return fmt.Sprintf("%s = %d", s.Result.Name, s.Value) }

// Copy is x = y.
type Copy struct {
	stmtBase
	Result *Var
	Source *Var
}

func (s *Copy) Def() *Var      { return s.Result }
func (s *Copy) Uses() []*Var   { return []*Var{s.Source} }
func (s *Copy) String() string { return fmt.Sprintf("%s = %s", s.Result.Name, s.Source.Name) }

// Cast is x = (T) y.
type Cast struct {
	stmtBase
	Result *Var
	Source *Var
	T      Type
}

func (s *Cast) Def() *Var    { return s.Result }
func (s *Cast) Uses() []*Var { return []*Var{s.Source} }
func (s *Cast) String() string {
	return fmt.Sprintf("%s = (%s) %s", s.Result.Name, s.T, s.Source.Name)
}

type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
)

func (op BinOp) String() string {
	return [...]string{"+", "-", "*", "/", "%"}[op]
}

// Binary is x = y op z.
type Binary struct {
	stmtBase
	Result *Var
	Op     BinOp
	X, Y   *Var
}

func (s *Binary) Def() *Var    { return s.Result }
func (s *Binary) Uses() []*Var { return []*Var{s.X, s.Y} }
func (s *Binary) String() string {
	return fmt.Sprintf("%s = %s %s %s", s.Result.Name, s.X.Name, s.Op, s.Y.Name)
}

// LoadField is x = y.f, or x = T.f when Base is nil.
type LoadField struct {
	stmtBase
	Result *Var
	Base   *Var // nil for static loads
	Field  *Field
}

func (s *LoadField) Def() *Var { return s.Result }
func (s *LoadField) Uses() []*Var {
	if s.Base == nil {
		return nil
	}
	return []*Var{s.Base}
}
func (s *LoadField) Static() bool { return s.Base == nil }
func (s *LoadField) String() string {
	if s.Static() {
		return fmt.Sprintf("%s = %s", s.Result.Name, s.Field)
	}
	return fmt.Sprintf("%s = %s.%s", s.Result.Name, s.Base.Name, s.Field.Name)
}

// StoreField is y.f = x, or T.f = x when Base is nil.
type StoreField struct {
	stmtBase
	Base  *Var // nil for static stores
	Field *Field
	Value *Var
}

func (s *StoreField) Uses() []*Var {
	if s.Base == nil {
		return []*Var{s.Value}
	}
	return []*Var{s.Base, s.Value}
}
func (s *StoreField) Static() bool { return s.Base == nil }
func (s *StoreField) String() string {
	if s.Static() {
		return fmt.Sprintf("%s = %s", s.Field, s.Value.Name)
	}
	return fmt.Sprintf("%s.%s = %s", s.Base.Name, s.Field.Name, s.Value.Name)
}

// LoadArray is x = y[*]. Indices are not modeled.
type LoadArray struct {
	stmtBase
	Result *Var
	Base   *Var
}

func (s *LoadArray) Def() *Var      { return s.Result }
func (s *LoadArray) Uses() []*Var   { return []*Var{s.Base} }
func (s *LoadArray) String() string { return fmt.Sprintf("%s = %s[*]", s.Result.Name, s.Base.Name) }

// StoreArray is y[*] = x.
type StoreArray struct {
	stmtBase
	Base  *Var
	Value *Var
}

func (s *StoreArray) Uses() []*Var   { return []*Var{s.Base, s.Value} }
func (s *StoreArray) String() string { return fmt.Sprintf("%s[*] = %s", s.Base.Name, s.Value.Name) }

// Invoke is [r =] y.m(a1..an), or [r =] T.m(a1..an) when Base is nil.
// Class and MethodName form the method reference resolved at analysis time.
type Invoke struct {
	stmtBase
	Result     *Var // nil when the result is discarded
	Base       *Var // nil for static calls
	Class      *Class
	MethodName string
	Args       []*Var
}

func (s *Invoke) Def() *Var { return s.Result }
func (s *Invoke) Uses() []*Var {
	uses := make([]*Var, 0, len(s.Args)+1)
	if s.Base != nil {
		uses = append(uses, s.Base)
	}
	return append(uses, s.Args...)
}
func (s *Invoke) Static() bool { return s.Base == nil }
func (s *Invoke) String() string {
	args := slices.Map(s.Args, func(v *Var) string { return v.Name })
	var b strings.Builder
	if s.Result != nil {
		fmt.Fprintf(&b, "%s = ", s.Result.Name)
	}
	if s.Static() {
		fmt.Fprintf(&b, "%s.%s(%s)", s.Class.Name, s.MethodName, strings.Join(args, ","))
	} else {
		fmt.Fprintf(&b, "%s.%s(%s)", s.Base.Name, s.MethodName, strings.Join(args, ","))
	}
	return b.String()
}

type CondOp int

const (
	Eq CondOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
)

func (op CondOp) String() string {
	return [...]string{"==", "!=", "<", ">", "<=", ">="}[op]
}

// If is a conditional branch on X op Y. Branch targets live on the CFG as
// IfTrue/IfFalse edges.
type If struct {
	stmtBase
	Op   CondOp
	X, Y *Var
}

func (s *If) Uses() []*Var   { return []*Var{s.X, s.Y} }
func (s *If) String() string { return fmt.Sprintf("if (%s %s %s)", s.X.Name, s.Op, s.Y.Name) }

// Switch branches on Var. Case targets live on the CFG as SwitchCase edges
// carrying the case value, plus one SwitchDefault edge.
type Switch struct {
	stmtBase
	Var *Var
}

func (s *Switch) Uses() []*Var   { return []*Var{s.Var} }
func (s *Switch) String() string { return fmt.Sprintf("switch (%s)", s.Var.Name) }

type Return struct {
	stmtBase
	Value *Var // nil for void returns
}

func (s *Return) Uses() []*Var {
	if s.Value == nil {
		return nil
	}
	return []*Var{s.Value}
}
func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.Name
}

// Nop is used for the synthetic CFG entry and exit nodes.
type Nop struct {
	stmtBase
}

func (s *Nop) String() string { return "nop" }
