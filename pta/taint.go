package pta

import (
	"fmt"
	"sort"

	"github.com/barrowsr/ptaint/ir"
	"github.com/barrowsr/ptaint/pta/taintconfig"
)

// TaintAnalysisID keys the taint overlay's flow list on the result object.
const TaintAnalysisID = "taint-analysis"

// TaintFlow reports taint born at Source reaching parameter Index of a
// sink call at Sink.
type TaintFlow struct {
	Source *ir.Invoke
	Sink   *ir.Invoke
	Index  int
}

func (f TaintFlow) String() string {
	return fmt.Sprintf("TaintFlow{%s -> %s/%d}", f.Source, f.Sink, f.Index)
}

func flowLess(a, b TaintFlow) bool {
	if am, bm := a.Source.Method().String(), b.Source.Method().String(); am != bm {
		return am < bm
	}
	if a.Source.Index() != b.Source.Index() {
		return a.Source.Index() < b.Source.Index()
	}
	if am, bm := a.Sink.Method().String(), b.Sink.Method().String(); am != bm {
		return am < bm
	}
	if a.Sink.Index() != b.Sink.Index() {
		return a.Sink.Index() < b.Sink.Index()
	}
	return a.Index < b.Index
}

type taintKey struct {
	call *ir.Invoke
	typ  ir.Type
}

// TaintManager synthesizes and identifies taint objects. Taint objects
// are interned per (source call, type).
type TaintManager struct {
	taints map[taintKey]*Obj
}

func NewTaintManager() *TaintManager {
	return &TaintManager{taints: make(map[taintKey]*Obj)}
}

// MakeTaint returns the taint object for the given source call and type.
func (m *TaintManager) MakeTaint(source *ir.Invoke, typ ir.Type) *Obj {
	key := taintKey{source, typ}
	if o, ok := m.taints[key]; ok {
		return o
	}
	o := &Obj{kind: objTaint, source: source, typ: typ}
	m.taints[key] = o
	return o
}

func (m *TaintManager) IsTaint(o *Obj) bool { return o.kind == objTaint }

// SourceCall returns the call a taint object originated from, or nil for
// ordinary objects.
func (m *TaintManager) SourceCall(o *Obj) *ir.Invoke { return o.source }

type taintTransfer struct {
	target Pointer
	typ    ir.Type
}

type tfgEdgeKey struct {
	src, dst Pointer
	typ      ir.Type
}

// taintAnalysis is the taint overlay. The solver owns it and calls into
// it at call-edge installation, at propagation of newly inserted taint
// objects, and at completion; each hook receives the solver so no back
// reference is needed.
type taintAnalysis struct {
	config  *taintconfig.Config
	manager *TaintManager

	// taint flow graph: type-rewriting transfers between pointer nodes,
	// fired only for taint objects.
	tfg    map[Pointer][]taintTransfer
	tfgSet map[tfgEdgeKey]struct{}
}

func newTaintAnalysis(config *taintconfig.Config) *taintAnalysis {
	return &taintAnalysis{
		config:  config,
		manager: NewTaintManager(),
		tfg:     make(map[Pointer][]taintTransfer),
		tfgSet:  make(map[tfgEdgeKey]struct{}),
	}
}

func (t *taintAnalysis) isTaint(o *CSObj) bool {
	return t.manager.IsTaint(o.Object())
}

// taintObj wraps a taint object in the empty context.
func (t *taintAnalysis) taintObj(s *Solver, source *ir.Invoke, typ ir.Type) *CSObj {
	return s.csManager.GetCSObj(s.selector.EmptyContext(), t.manager.MakeTaint(source, typ))
}

// onNewCallEdge installs the overlay's part of a fresh call-graph edge:
// source injection and transfer edges. recvNode is the receiver variable
// node in the caller context, nil for static calls.
func (t *taintAnalysis) onNewCallEdge(s *Solver, cs *CSCallSite, callee *CSMethod, recvNode Pointer) {
	call := cs.CallSite()
	c := cs.Context()
	m := callee.Method()

	var result *CSVar
	if call.Result != nil {
		result = s.csManager.GetCSVar(c, call.Result)

		for _, typ := range t.config.SourcesOf(m) {
			s.work.Push(entry{result, NewPointsToSet(t.taintObj(s, call, typ))})
		}
	}

	for i, a := range call.Args {
		arg := s.csManager.GetCSVar(c, a)
		if result != nil {
			for _, typ := range t.config.TransfersOf(m, i, taintconfig.Result) {
				t.addTFGEdge(s, arg, result, typ)
			}
		}
		if recvNode != nil {
			for _, typ := range t.config.TransfersOf(m, i, taintconfig.Base) {
				t.addTFGEdge(s, arg, recvNode, typ)
			}
		}
	}

	if recvNode != nil && result != nil {
		for _, typ := range t.config.TransfersOf(m, taintconfig.Base, taintconfig.Result) {
			t.addTFGEdge(s, recvNode, result, typ)
		}
	}
}

// addTFGEdge installs src → dst with a rewrite type. On first
// installation, taint objects already present in pt(src) are re-emitted
// at dst with the rewritten type.
func (t *taintAnalysis) addTFGEdge(s *Solver, src, dst Pointer, typ ir.Type) {
	key := tfgEdgeKey{src, dst, typ}
	if _, ok := t.tfgSet[key]; ok {
		return
	}
	t.tfgSet[key] = struct{}{}
	t.tfg[src] = append(t.tfg[src], taintTransfer{target: dst, typ: typ})

	pts := NewPointsToSet()
	for _, o := range src.PointsToSet().Objects() {
		if t.isTaint(o) {
			pts.Add(t.taintObj(s, t.manager.SourceCall(o.Object()), typ))
		}
	}
	if !pts.IsEmpty() {
		s.work.Push(entry{dst, pts})
	}
}

// onNewObj fires for every object newly inserted into pt(p); transfers
// fire for taint objects only, so cyclic taint flow graphs still reach a
// fixed point.
func (t *taintAnalysis) onNewObj(s *Solver, p Pointer, o *CSObj) {
	if !t.isTaint(o) {
		return
	}
	source := t.manager.SourceCall(o.Object())
	for _, tr := range t.tfg[p] {
		s.work.Push(entry{tr.target, NewPointsToSet(t.taintObj(s, source, tr.typ))})
	}
}

// collectFlows scans all call edges for sink parameters whose points-to
// sets contain taint, deduplicated and sorted for deterministic output.
func (t *taintAnalysis) collectFlows(s *Solver) []TaintFlow {
	seen := make(map[TaintFlow]struct{})
	var flows []TaintFlow
	for _, edge := range s.callGraph.Edges() {
		call := edge.CallSite.CallSite()
		c := edge.CallSite.Context()
		m := edge.Callee.Method()
		for i, a := range call.Args {
			if !t.config.IsSink(m, i) {
				continue
			}
			arg := s.csManager.GetCSVar(c, a)
			for _, o := range arg.PointsToSet().Objects() {
				if !t.isTaint(o) {
					continue
				}
				flow := TaintFlow{
					Source: t.manager.SourceCall(o.Object()),
					Sink:   call,
					Index:  i,
				}
				if _, dup := seen[flow]; !dup {
					seen[flow] = struct{}{}
					flows = append(flows, flow)
				}
			}
		}
	}
	sort.Slice(flows, func(i, j int) bool { return flowLess(flows[i], flows[j]) })
	return flows
}
