// Package dataflow implements the intra-procedural analyses feeding the
// dead-code detector: constant propagation and live variables, both
// classic round-robin fixed points over a method CFG.
package dataflow

import (
	"fmt"

	"github.com/barrowsr/ptaint/ir"
)

type valueKind int

const (
	undef valueKind = iota
	constant
	nac
)

// Value is the constant-propagation lattice: Undef ⊏ Const(c) ⊏ NAC.
type Value struct {
	kind valueKind
	c    int64
}

func Undef() Value        { return Value{} }
func NAC() Value          { return Value{kind: nac} }
func Const(c int64) Value { return Value{kind: constant, c: c} }

func (v Value) IsUndef() bool    { return v.kind == undef }
func (v Value) IsConstant() bool { return v.kind == constant }
func (v Value) IsNAC() bool      { return v.kind == nac }

// Constant returns the constant; callers must check IsConstant first.
func (v Value) Constant() int64 {
	if v.kind != constant {
		panic(fmt.Errorf("value %s is not a constant", v))
	}
	return v.c
}

func (v Value) String() string {
	switch v.kind {
	case undef:
		return "Undef"
	case nac:
		return "NAC"
	default:
		return fmt.Sprintf("%d", v.c)
	}
}

func meetValue(a, b Value) Value {
	switch {
	case a.IsUndef():
		return b
	case b.IsUndef():
		return a
	case a.IsNAC() || b.IsNAC():
		return NAC()
	case a.c == b.c:
		return a
	default:
		return NAC()
	}
}

// CPFact maps variables to lattice values. Absent variables are Undef.
type CPFact map[*ir.Var]Value

func (f CPFact) Get(v *ir.Var) Value { return f[v] }

func (f CPFact) clone() CPFact {
	c := make(CPFact, len(f))
	for v, val := range f {
		c[v] = val
	}
	return c
}

func (f CPFact) equal(other CPFact) bool {
	if len(f) != len(other) {
		return false
	}
	for v, val := range f {
		if other[v] != val {
			return false
		}
	}
	return true
}

// meetInto merges other into f and reports whether f changed.
func (f CPFact) meetInto(other CPFact) bool {
	changed := false
	for v, val := range other {
		merged := meetValue(f[v], val)
		if merged != f[v] {
			f[v] = merged
			changed = true
		}
	}
	return changed
}

// EvaluateCond evaluates an if condition under a fact. The result is
// Const(1) or Const(0) when both operands are constants, NAC when either
// is NAC, Undef otherwise.
func EvaluateCond(s *ir.If, fact CPFact) Value {
	x, y := fact.Get(s.X), fact.Get(s.Y)
	if x.IsNAC() || y.IsNAC() {
		return NAC()
	}
	if !x.IsConstant() || !y.IsConstant() {
		return Undef()
	}
	var holds bool
	switch s.Op {
	case ir.Eq:
		holds = x.Constant() == y.Constant()
	case ir.Ne:
		holds = x.Constant() != y.Constant()
	case ir.Lt:
		holds = x.Constant() < y.Constant()
	case ir.Gt:
		holds = x.Constant() > y.Constant()
	case ir.Le:
		holds = x.Constant() <= y.Constant()
	case ir.Ge:
		holds = x.Constant() >= y.Constant()
	}
	if holds {
		return Const(1)
	}
	return Const(0)
}

func evalBinary(op ir.BinOp, x, y Value) Value {
	// Division by a constant zero cannot execute; its value stays Undef.
	if (op == ir.Div || op == ir.Rem) && y.IsConstant() && y.Constant() == 0 {
		return Undef()
	}
	if x.IsNAC() || y.IsNAC() {
		return NAC()
	}
	if !x.IsConstant() || !y.IsConstant() {
		return Undef()
	}
	a, b := x.Constant(), y.Constant()
	switch op {
	case ir.Add:
		return Const(a + b)
	case ir.Sub:
		return Const(a - b)
	case ir.Mul:
		return Const(a * b)
	case ir.Div:
		return Const(a / b)
	case ir.Rem:
		return Const(a % b)
	}
	return NAC()
}
