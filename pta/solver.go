package pta

import (
	log "github.com/sirupsen/logrus"

	"github.com/barrowsr/ptaint/internal/queue"
	"github.com/barrowsr/ptaint/ir"
	"github.com/barrowsr/ptaint/pta/taintconfig"
)

// Options is the string-keyed analysis option map. The solver reads only
// "taint-config", the path of the taint configuration file.
type Options map[string]string

// TaintConfigOption names the option holding the taint config file path.
const TaintConfigOption = "taint-config"

// entry is a work-list item: a pointer node together with points-to facts
// to be propagated into it. The list is a multiset; duplicate pointers are
// resolved by set difference in propagate.
type entry struct {
	ptr Pointer
	pts *PointsToSet
}

// Solver runs the context-sensitive inclusion-based pointer analysis with
// the taint overlay. A solver is good for a single Solve.
type Solver struct {
	prog     *ir.Program
	options  Options
	heap     HeapModel
	selector ContextSelector

	csManager *CSManager
	callGraph *CallGraph
	pfg       *pointerFlowGraph
	work      queue.Queue[entry]
	taint     *taintAnalysis
	result    *Result
}

func NewSolver(prog *ir.Program, options Options, heap HeapModel, selector ContextSelector) (*Solver, error) {
	config, err := taintconfig.Load(options[TaintConfigOption], prog)
	if err != nil {
		return nil, err
	}
	if !config.IsEmpty() {
		log.Debug(config)
	}

	return &Solver{
		prog:      prog,
		options:   options,
		heap:      heap,
		selector:  selector,
		csManager: NewCSManager(),
		callGraph: NewCallGraph(),
		pfg:       newPointerFlowGraph(),
		taint:     newTaintAnalysis(config),
	}, nil
}

// Solve is the package's main entry point: it runs the analysis on prog
// starting from prog.Entry and returns the result.
func Solve(prog *ir.Program, options Options, heap HeapModel, selector ContextSelector) (*Result, error) {
	s, err := NewSolver(prog, options, heap, selector)
	if err != nil {
		return nil, err
	}
	return s.Solve(), nil
}

// SolveInsensitive runs the context-insensitive variant.
func SolveInsensitive(prog *ir.Program, options Options, heap HeapModel) (*Result, error) {
	return Solve(prog, options, heap, Insensitive{})
}

func (s *Solver) Solve() *Result {
	s.initialize()
	s.analyze()
	s.finish()
	return s.result
}

func (s *Solver) initialize() {
	if s.prog.Entry == nil {
		log.Panicf("program has no entry method")
	}
	entryMethod := s.csManager.GetCSMethod(s.selector.EmptyContext(), s.prog.Entry)
	s.callGraph.AddEntryMethod(entryMethod)
	s.addReachable(entryMethod)
}

// addReachable processes a newly reachable context-sensitive method:
// each method's statements are translated exactly once per context.
func (s *Solver) addReachable(m *CSMethod) {
	if s.callGraph.AddReachableMethod(m) {
		s.processStatements(m)
	}
}

// processStatements translates the statements of m into flow edges and
// initial facts. Instance field/array accesses and instance calls are
// receiver-dependent and handled in the solver loop instead.
func (s *Solver) processStatements(m *CSMethod) {
	ctx := m.Context()
	for _, st := range m.Method().IR.Stmts {
		switch st := st.(type) {
		case *ir.New:
			obj := s.heap.GetObj(st)
			hctx := s.selector.SelectHeapContext(m, obj)
			s.work.Push(entry{
				s.csManager.GetCSVar(ctx, st.Result),
				NewPointsToSet(s.csManager.GetCSObj(hctx, obj)),
			})

		case *ir.Copy:
			s.addPFGEdge(
				s.csManager.GetCSVar(ctx, st.Source),
				s.csManager.GetCSVar(ctx, st.Result))

		case *ir.StoreField:
			if st.Static() {
				s.addPFGEdge(
					s.csManager.GetCSVar(ctx, st.Value),
					s.csManager.GetStaticField(st.Field))
			}

		case *ir.LoadField:
			if st.Static() {
				s.addPFGEdge(
					s.csManager.GetStaticField(st.Field),
					s.csManager.GetCSVar(ctx, st.Result))
			}

		case *ir.Invoke:
			if st.Static() {
				callee := s.prog.ResolveCallee("", st)
				if callee == nil {
					continue
				}
				cs := s.csManager.GetCSCallSite(ctx, st)
				ct := s.selector.SelectStaticContext(cs, callee)
				s.installCallEdge(CallStatic, cs, s.csManager.GetCSMethod(ct, callee), nil)
			}
		}
	}
}

// addPFGEdge installs src → dst; when the edge is new and pt(src) is
// non-empty, pt(src) is queued for dst.
func (s *Solver) addPFGEdge(src, dst Pointer) {
	if s.pfg.addEdge(src, dst) {
		if pts := src.PointsToSet(); !pts.IsEmpty() {
			s.work.Push(entry{dst, pts})
		}
	}
}

// installCallEdge adds a call-graph edge; on a fresh edge the callee
// becomes reachable and parameter, return and taint wiring is installed.
// recvNode is the caller-context receiver node, nil for static calls.
func (s *Solver) installCallEdge(kind CallKind, cs *CSCallSite, callee *CSMethod, recvNode Pointer) {
	if !s.callGraph.AddEdge(&CallEdge{Kind: kind, CallSite: cs, Callee: callee}) {
		return
	}
	s.addReachable(callee)

	call := cs.CallSite()
	callerCtx := cs.Context()
	calleeCtx := callee.Context()
	calleeIR := callee.Method().IR

	if len(call.Args) != len(calleeIR.Params) {
		log.Panicf("arity mismatch at %s: %d args, callee %s takes %d",
			call, len(call.Args), callee.Method(), len(calleeIR.Params))
	}
	for i, a := range call.Args {
		s.addPFGEdge(
			s.csManager.GetCSVar(callerCtx, a),
			s.csManager.GetCSVar(calleeCtx, calleeIR.Params[i]))
	}
	if call.Result != nil {
		for _, ret := range calleeIR.ReturnVars {
			s.addPFGEdge(
				s.csManager.GetCSVar(calleeCtx, ret),
				s.csManager.GetCSVar(callerCtx, call.Result))
		}
	}

	s.taint.onNewCallEdge(s, cs, callee, recvNode)
}

// analyze drains the work list to the fixed point.
func (s *Solver) analyze() {
	for !s.work.Empty() {
		e := s.work.Pop()
		delta := s.propagate(e.ptr, e.pts)

		csVar, ok := e.ptr.(*CSVar)
		if !ok {
			continue
		}
		c := csVar.Context()
		v := csVar.Var()
		for _, obj := range delta.Objects() {
			for _, st := range v.StoreFields {
				s.addPFGEdge(
					s.csManager.GetCSVar(c, st.Value),
					s.csManager.GetInstanceField(obj, st.Field))
			}
			for _, st := range v.LoadFields {
				s.addPFGEdge(
					s.csManager.GetInstanceField(obj, st.Field),
					s.csManager.GetCSVar(c, st.Result))
			}
			for _, st := range v.StoreArrays {
				s.addPFGEdge(
					s.csManager.GetCSVar(c, st.Value),
					s.csManager.GetArrayIndex(obj))
			}
			for _, st := range v.LoadArrays {
				s.addPFGEdge(
					s.csManager.GetArrayIndex(obj),
					s.csManager.GetCSVar(c, st.Result))
			}
			s.processCall(csVar, obj)
		}
	}
}

// propagate merges pts into pt(p) and queues the strictly new objects for
// every PFG successor. Returns the delta.
func (s *Solver) propagate(p Pointer, pts *PointsToSet) *PointsToSet {
	delta := NewPointsToSet()
	target := p.PointsToSet()
	for _, obj := range pts.Objects() {
		if target.Add(obj) {
			delta.Add(obj)
			s.taint.onNewObj(s, p, obj)
		}
	}
	if !delta.IsEmpty() {
		for _, succ := range s.pfg.succsOf(p) {
			s.work.Push(entry{succ, delta})
		}
	}
	return delta
}

// processCall handles the instance calls on recv for one newly discovered
// receiver object.
func (s *Solver) processCall(recv *CSVar, recvObj *CSObj) {
	c := recv.Context()
	for _, call := range recv.Var().Invokes {
		callee := s.prog.ResolveCallee(recvObj.Object().Type(), call)
		if callee == nil {
			continue
		}
		cs := s.csManager.GetCSCallSite(c, call)
		ct := s.selector.SelectContext(cs, recvObj, callee)
		csCallee := s.csManager.GetCSMethod(ct, callee)

		if callee.IR.This == nil {
			log.Panicf("instance call %s resolved to static method %s", call, callee)
		}
		s.work.Push(entry{
			s.csManager.GetCSVar(ct, callee.IR.This),
			NewPointsToSet(recvObj),
		})
		s.installCallEdge(CallVirtual, cs, csCallee, recv)
	}
}

func (s *Solver) finish() {
	s.result = newResult(s.csManager, s.callGraph)
	s.result.StoreResult(TaintAnalysisID, s.taint.collectFlows(s))
	log.Debugf("solved: %d reachable methods, %d call edges",
		len(s.callGraph.ReachableMethods()), len(s.callGraph.Edges()))
}
