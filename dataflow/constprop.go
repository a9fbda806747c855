package dataflow

import "github.com/barrowsr/ptaint/ir"

// CPResult holds per-statement constant-propagation facts.
type CPResult struct {
	in, out map[ir.Stmt]CPFact
}

func (r *CPResult) InFact(s ir.Stmt) CPFact  { return r.in[s] }
func (r *CPResult) OutFact(s ir.Stmt) CPFact { return r.out[s] }

// ConstantPropagation computes must-constant facts forward over cfg.
// Method parameters and this start at NAC.
func ConstantPropagation(cfg *ir.CFG) *CPResult {
	r := &CPResult{
		in:  make(map[ir.Stmt]CPFact),
		out: make(map[ir.Stmt]CPFact),
	}
	nodes := cfg.Nodes()
	for _, s := range nodes {
		r.in[s] = make(CPFact)
		r.out[s] = make(CPFact)
	}

	boundary := r.in[cfg.Entry()]
	mir := cfg.Method.IR
	if mir.This != nil {
		boundary[mir.This] = NAC()
	}
	for _, p := range mir.Params {
		boundary[p] = NAC()
	}
	r.out[cfg.Entry()] = boundary.clone()

	for changed := true; changed; {
		changed = false
		for _, s := range nodes {
			if s == cfg.Entry() {
				continue
			}
			in := r.in[s]
			for _, pred := range cfg.PredsOf(s) {
				in.meetInto(r.out[pred])
			}
			out := transferCP(s, in)
			if !out.equal(r.out[s]) {
				r.out[s] = out
				changed = true
			}
		}
	}
	return r
}

func transferCP(s ir.Stmt, in CPFact) CPFact {
	out := in.clone()
	switch s := s.(type) {
	case *ir.AssignLiteral:
		out[s.Result] = Const(s.Value)
	case *ir.Copy:
		out[s.Result] = in.Get(s.Source)
	case *ir.Binary:
		out[s.Result] = evalBinary(s.Op, in.Get(s.X), in.Get(s.Y))
	default:
		// Loads, allocations and call results are not tracked.
		if d := s.Def(); d != nil {
			out[d] = NAC()
		}
	}
	return out
}
