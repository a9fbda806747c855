package dataflow

import "github.com/barrowsr/ptaint/ir"

// SetFact is a set of live variables.
type SetFact map[*ir.Var]struct{}

func (f SetFact) Has(v *ir.Var) bool {
	_, ok := f[v]
	return ok
}

// unionInto merges other into f and reports whether f changed.
func (f SetFact) unionInto(other SetFact) bool {
	changed := false
	for v := range other {
		if !f.Has(v) {
			f[v] = struct{}{}
			changed = true
		}
	}
	return changed
}

// LiveResult holds per-statement live-variable facts.
type LiveResult struct {
	in, out map[ir.Stmt]SetFact
}

func (r *LiveResult) InFact(s ir.Stmt) SetFact  { return r.in[s] }
func (r *LiveResult) OutFact(s ir.Stmt) SetFact { return r.out[s] }

// LiveVariables computes live variables backward over cfg.
func LiveVariables(cfg *ir.CFG) *LiveResult {
	r := &LiveResult{
		in:  make(map[ir.Stmt]SetFact),
		out: make(map[ir.Stmt]SetFact),
	}
	nodes := cfg.Nodes()
	for _, s := range nodes {
		r.in[s] = make(SetFact)
		r.out[s] = make(SetFact)
	}

	for changed := true; changed; {
		changed = false
		for i := len(nodes) - 1; i >= 0; i-- {
			s := nodes[i]
			out := r.out[s]
			for _, succ := range cfg.SuccsOf(s) {
				if out.unionInto(r.in[succ]) {
					changed = true
				}
			}
			in := r.in[s]
			def := s.Def()
			for v := range out {
				if v != def {
					if !in.Has(v) {
						in[v] = struct{}{}
						changed = true
					}
				}
			}
			for _, v := range s.Uses() {
				if !in.Has(v) {
					in[v] = struct{}{}
					changed = true
				}
			}
		}
	}
	return r
}
