package pta

import "github.com/barrowsr/ptaint/ir"

// Result exposes the final context-sensitive call graph and points-to
// facts. Plugin analyses store their own results on it under a string
// identifier; the taint overlay stores its flow list under
// TaintAnalysisID.
type Result struct {
	csManager *CSManager
	callGraph *CallGraph
	stored    map[string]any
}

func newResult(csManager *CSManager, callGraph *CallGraph) *Result {
	return &Result{
		csManager: csManager,
		callGraph: callGraph,
		stored:    make(map[string]any),
	}
}

func (r *Result) CallGraph() *CallGraph { return r.callGraph }

func (r *Result) CSManager() *CSManager { return r.csManager }

// VarPointsTo returns pt(CSVar(ctx, v)). The query is total: a variable
// the solver never touched answers with the empty set.
func (r *Result) VarPointsTo(ctx Context, v *ir.Var) *PointsToSet {
	return r.csManager.GetCSVar(ctx, v).PointsToSet()
}

func (r *Result) StoreResult(id string, v any) { r.stored[id] = v }

func (r *Result) ResultOf(id string) any { return r.stored[id] }

// TaintFlows returns the taint overlay's sorted findings.
func (r *Result) TaintFlows() []TaintFlow {
	flows, _ := r.stored[TaintAnalysisID].([]TaintFlow)
	return flows
}
