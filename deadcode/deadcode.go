// Package deadcode detects dead statements in a method: code unreachable
// from the CFG entry once constant branches are resolved, plus pure
// assignments whose target is never live afterwards.
package deadcode

import (
	"sort"

	"github.com/barrowsr/ptaint/dataflow"
	"github.com/barrowsr/ptaint/internal/queue"
	"github.com/barrowsr/ptaint/ir"
)

// Detect returns the dead statements of cfg's method, ordered by
// statement index. constants supplies the in-fact and live the out-fact
// of every statement.
func Detect(cfg *ir.CFG, constants *dataflow.CPResult, live *dataflow.LiveResult) []ir.Stmt {
	visited := make(map[ir.Stmt]bool)
	var work queue.Queue[ir.Stmt]
	visit := func(s ir.Stmt) {
		if !visited[s] {
			visited[s] = true
			work.Push(s)
		}
	}
	visit(cfg.Entry())

	dead := make(map[ir.Stmt]bool)
	for !work.Empty() {
		p := work.Pop()
		switch s := p.(type) {
		case *ir.If:
			cond := dataflow.EvaluateCond(s, constants.InFact(p))
			if cond.IsConstant() {
				want := ir.IfFalse
				if cond.Constant() == 1 {
					want = ir.IfTrue
				}
				for _, e := range cfg.OutEdgesOf(p) {
					if e.Kind == want {
						visit(e.Target)
					}
				}
				continue
			}

		case *ir.Switch:
			v := constants.InFact(p).Get(s.Var)
			if v.IsConstant() {
				matched := false
				for _, e := range cfg.OutEdgesOf(p) {
					if e.Kind == ir.SwitchCase && e.CaseValue == v.Constant() {
						visit(e.Target)
						matched = true
						break
					}
				}
				if !matched {
					for _, e := range cfg.OutEdgesOf(p) {
						if e.Kind == ir.SwitchDefault {
							visit(e.Target)
						}
					}
				}
				continue
			}

		default:
			if isAssign(p) && !live.OutFact(p).Has(p.Def()) && hasNoSideEffect(p) {
				dead[p] = true
			}
		}
		for _, e := range cfg.OutEdgesOf(p) {
			visit(e.Target)
		}
	}

	for _, s := range cfg.Nodes() {
		if s != cfg.Exit() && !visited[s] {
			dead[s] = true
		}
	}

	result := make([]ir.Stmt, 0, len(dead))
	for s := range dead {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index() < result[j].Index() })
	return result
}

// isAssign reports whether s assigns a variable. Calls are excluded even
// when they bind a result; removing one would drop the call.
func isAssign(s ir.Stmt) bool {
	switch s.(type) {
	case *ir.New, *ir.Copy, *ir.Cast, *ir.AssignLiteral, *ir.Binary,
		*ir.LoadField, *ir.LoadArray:
		return true
	}
	return false
}

// hasNoSideEffect reports whether the right-hand side of an assignment
// can be discarded: allocation touches the heap, casts and field/array
// accesses may fault, and DIV/REM may divide by zero.
func hasNoSideEffect(s ir.Stmt) bool {
	switch s := s.(type) {
	case *ir.New, *ir.Cast, *ir.LoadField, *ir.LoadArray:
		return false
	case *ir.Binary:
		return s.Op != ir.Div && s.Op != ir.Rem
	}
	return true
}
