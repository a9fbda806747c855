package pta_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrowsr/ptaint/ir"
	"github.com/barrowsr/ptaint/pta"
)

var emptyCtx = pta.Insensitive{}.EmptyContext()

func solve(t *testing.T, prog *ir.Program, selector pta.ContextSelector) *pta.Result {
	t.Helper()
	res, err := pta.Solve(prog, nil, pta.NewAllocSiteModel(), selector)
	require.NoError(t, err)
	return res
}

func TestCopyChain(t *testing.T) {
	prog := ir.NewProgram()
	cls := prog.NewClass("Main", nil)
	main := cls.NewMethod("main", true)
	a, b, c := main.NewVar("a"), main.NewVar("b"), main.NewVar("c")
	main.Add(&ir.New{Result: a, T: "A"})
	main.Add(&ir.Copy{Result: b, Source: a})
	main.Add(&ir.Copy{Result: c, Source: b})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	pa := res.VarPointsTo(emptyCtx, a)
	require.Equal(t, 1, pa.Len())
	obj := pa.Objects()[0]
	assert.Equal(t, ir.Type("A"), obj.Object().Type())

	for _, v := range []*ir.Var{b, c} {
		pv := res.VarPointsTo(emptyCtx, v)
		assert.Equal(t, 1, pv.Len(), "pt(%s)", v)
		assert.True(t, pv.Contains(obj), "pt(%s) should contain the allocation", v)
	}
}

func TestInstanceDispatch(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	pCls := prog.NewClass("P", nil)
	qCls := prog.NewClass("Q", nil)
	pm := pCls.NewMethod("m", false)
	qm := qCls.NewMethod("m", false)

	main := mainCls.NewMethod("main", true)
	x, y := main.NewVar("x"), main.NewVar("y")
	main.Add(&ir.New{Result: x, T: "P"})
	callX := main.Add(&ir.Invoke{Base: x, MethodName: "m"}).(*ir.Invoke)
	main.Add(&ir.New{Result: y, T: "Q"})
	callY := main.Add(&ir.Invoke{Base: y, MethodName: "m"}).(*ir.Invoke)
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	callees := make(map[*ir.Invoke][]*ir.Method)
	for _, e := range res.CallGraph().Edges() {
		assert.Equal(t, pta.CallVirtual, e.Kind)
		callees[e.CallSite.CallSite()] = append(callees[e.CallSite.CallSite()], e.Callee.Method())
	}
	assert.Equal(t, []*ir.Method{pm}, callees[callX])
	assert.Equal(t, []*ir.Method{qm}, callees[callY])
}

func TestFieldFlow(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	cCls := prog.NewClass("C", nil)
	f := cCls.NewField("f", "Object", false)

	main := mainCls.NewMethod("main", true)
	c, d, tv := main.NewVar("c"), main.NewVar("d"), main.NewVar("t")
	main.Add(&ir.New{Result: c, T: "C"})
	main.Add(&ir.New{Result: d, T: "D"})
	main.Add(&ir.StoreField{Base: c, Field: f, Value: d})
	main.Add(&ir.LoadField{Result: tv, Base: c, Field: f})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	pd := res.VarPointsTo(emptyCtx, d)
	require.Equal(t, 1, pd.Len())
	assert.True(t, res.VarPointsTo(emptyCtx, tv).Contains(pd.Objects()[0]),
		"t should point to the D allocation through c.f")
}

func TestStaticFieldFlow(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	g := mainCls.NewField("g", "Object", true)

	main := mainCls.NewMethod("main", true)
	a, b := main.NewVar("a"), main.NewVar("b")
	main.Add(&ir.New{Result: a, T: "A"})
	main.Add(&ir.StoreField{Field: g, Value: a})
	main.Add(&ir.LoadField{Result: b, Field: g})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})
	assert.Equal(t, res.VarPointsTo(emptyCtx, a).Objects(),
		res.VarPointsTo(emptyCtx, b).Objects())
}

func TestArrayFlow(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)

	main := mainCls.NewMethod("main", true)
	arr, x, y := main.NewVar("arr"), main.NewVar("x"), main.NewVar("y")
	main.Add(&ir.New{Result: arr, T: "A[]"})
	main.Add(&ir.New{Result: x, T: "A"})
	main.Add(&ir.StoreArray{Base: arr, Value: x})
	main.Add(&ir.LoadArray{Result: y, Base: arr})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	px := res.VarPointsTo(emptyCtx, x)
	require.Equal(t, 1, px.Len())
	assert.True(t, res.VarPointsTo(emptyCtx, y).Contains(px.Objects()[0]))
}

// buildIdentityProgram is the classic context-sensitivity litmus test:
// main calls a static identity method with two distinct allocations.
func buildIdentityProgram() (prog *ir.Program, x1, x2 *ir.Var) {
	prog = ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	idCls := prog.NewClass("Id", nil)

	id := idCls.NewMethod("id", true)
	p := id.NewParam("p")
	r := id.NewVar("r")
	id.AddReturnVar(r)
	id.Add(&ir.Copy{Result: r, Source: p})

	main := mainCls.NewMethod("main", true)
	a, b := main.NewVar("a"), main.NewVar("b")
	x1, x2 = main.NewVar("x1"), main.NewVar("x2")
	main.Add(&ir.New{Result: a, T: "A"})
	main.Add(&ir.New{Result: b, T: "B"})
	main.Add(&ir.Invoke{Result: x1, Class: idCls, MethodName: "id", Args: []*ir.Var{a}})
	main.Add(&ir.Invoke{Result: x2, Class: idCls, MethodName: "id", Args: []*ir.Var{b}})
	prog.Entry = main
	return prog, x1, x2
}

func TestContextSensitivity(t *testing.T) {
	t.Run("insensitive conflates", func(t *testing.T) {
		prog, x1, x2 := buildIdentityProgram()
		res := solve(t, prog, pta.Insensitive{})
		assert.Equal(t, 2, res.VarPointsTo(emptyCtx, x1).Len())
		assert.Equal(t, 2, res.VarPointsTo(emptyCtx, x2).Len())
	})

	t.Run("1-call distinguishes", func(t *testing.T) {
		prog, x1, x2 := buildIdentityProgram()
		res := solve(t, prog, pta.KCallSite{K: 1})
		p1 := res.VarPointsTo(emptyCtx, x1)
		p2 := res.VarPointsTo(emptyCtx, x2)
		require.Equal(t, 1, p1.Len())
		require.Equal(t, 1, p2.Len())
		assert.Equal(t, ir.Type("A"), p1.Objects()[0].Object().Type())
		assert.Equal(t, ir.Type("B"), p2.Objects()[0].Object().Type())
	})
}

func TestThisReceivesReceiver(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	pCls := prog.NewClass("P", nil)
	pm := pCls.NewMethod("m", false)

	main := mainCls.NewMethod("main", true)
	x := main.NewVar("x")
	main.Add(&ir.New{Result: x, T: "P"})
	main.Add(&ir.Invoke{Base: x, MethodName: "m"})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	px := res.VarPointsTo(emptyCtx, x)
	require.Equal(t, 1, px.Len())
	pthis := res.VarPointsTo(emptyCtx, pm.IR.This)
	assert.True(t, pthis.Contains(px.Objects()[0]),
		"this of P.m should contain the receiver object")
}

func TestVirtualDispatchThroughSuper(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	base := prog.NewClass("Base", nil)
	sub := prog.NewClass("Sub", base)
	bm := base.NewMethod("m", false)
	_ = sub // Sub inherits m

	main := mainCls.NewMethod("main", true)
	x := main.NewVar("x")
	main.Add(&ir.New{Result: x, T: "Sub"})
	main.Add(&ir.Invoke{Base: x, MethodName: "m"})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})

	edges := res.CallGraph().Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, bm, edges[0].Callee.Method())
}

func TestUnresolvableCallee(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)

	main := mainCls.NewMethod("main", true)
	x := main.NewVar("x")
	main.Add(&ir.New{Result: x, T: "Ghost"}) // no class Ghost exists
	main.Add(&ir.Invoke{Base: x, MethodName: "m"})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})
	assert.Empty(t, res.CallGraph().Edges(), "unresolvable callee installs no edge")
}

func TestZeroParamNoResultCall(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	util := prog.NewClass("Util", nil)
	util.NewMethod("noop", true)

	main := mainCls.NewMethod("main", true)
	main.Add(&ir.Invoke{Class: util, MethodName: "noop"})
	prog.Entry = main

	res := solve(t, prog, pta.Insensitive{})
	require.Len(t, res.CallGraph().Edges(), 1)
	assert.Equal(t, pta.CallStatic, res.CallGraph().Edges()[0].Kind)
	assert.Len(t, res.CallGraph().ReachableMethods(), 2)
}

// ciSelector returns the empty context for everything without being the
// Insensitive type; the analysis must degenerate to context-insensitive.
type ciSelector struct{}

func (ciSelector) EmptyContext() pta.Context { return emptyCtx }
func (ciSelector) SelectStaticContext(*pta.CSCallSite, *ir.Method) pta.Context {
	return emptyCtx
}
func (ciSelector) SelectContext(*pta.CSCallSite, *pta.CSObj, *ir.Method) pta.Context {
	return emptyCtx
}
func (ciSelector) SelectHeapContext(*pta.CSMethod, *pta.Obj) pta.Context {
	return emptyCtx
}

func TestEmptySelectorMatchesInsensitive(t *testing.T) {
	progA, ax1, ax2 := buildIdentityProgram()
	progB, bx1, bx2 := buildIdentityProgram()

	resA := solve(t, progA, ciSelector{})
	resB := solve(t, progB, pta.Insensitive{})

	assert.Equal(t, resA.VarPointsTo(emptyCtx, ax1).String(),
		resB.VarPointsTo(emptyCtx, bx1).String())
	assert.Equal(t, resA.VarPointsTo(emptyCtx, ax2).String(),
		resB.VarPointsTo(emptyCtx, bx2).String())
	assert.Equal(t, len(resA.CallGraph().Edges()), len(resB.CallGraph().Edges()))
}

func TestDeterminism(t *testing.T) {
	summary := func() map[string]string {
		prog, x1, x2 := buildIdentityProgram()
		res := solve(t, prog, pta.KCallSite{K: 2})
		out := map[string]string{
			"x1": res.VarPointsTo(emptyCtx, x1).String(),
			"x2": res.VarPointsTo(emptyCtx, x2).String(),
		}
		for i, e := range res.CallGraph().Edges() {
			out[fmt.Sprintf("edge%d", i)] = e.Callee.String()
		}
		return out
	}

	first := summary()
	for i := 0; i < 3; i++ {
		if diff := cmp.Diff(first, summary()); diff != "" {
			t.Fatalf("solver output varies between runs (-first +rerun):\n%s", diff)
		}
	}
}

func writeTaintConfig(t *testing.T, body string) pta.Options {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return pta.Options{pta.TaintConfigOption: path}
}

// buildSourceSinkProgram is scenario "x = Src.get(); Snk.use(x)" with an
// optional transfer call in between.
func buildSourceSinkProgram(withTransfer bool) (prog *ir.Program, src, sink *ir.Invoke, y *ir.Var) {
	prog = ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	srcCls := prog.NewClass("Src", nil)
	snkCls := prog.NewClass("Snk", nil)
	srcCls.NewMethod("get", true)
	use := snkCls.NewMethod("use", true)
	use.NewParam("p")

	main := mainCls.NewMethod("main", true)
	x := main.NewVar("x")
	src = main.Add(&ir.Invoke{Result: x, Class: srcCls, MethodName: "get"}).(*ir.Invoke)

	arg := x
	if withTransfer {
		wrapCls := prog.NewClass("Wrap", nil)
		of := wrapCls.NewMethod("of", true)
		of.NewParam("p")
		y = main.NewVar("y")
		main.Add(&ir.Invoke{Result: y, Class: wrapCls, MethodName: "of", Args: []*ir.Var{x}})
		arg = y
	}

	sink = main.Add(&ir.Invoke{Class: snkCls, MethodName: "use", Args: []*ir.Var{arg}}).(*ir.Invoke)
	prog.Entry = main
	return prog, src, sink, y
}

func TestTaintSourceToSink(t *testing.T) {
	prog, src, sink, _ := buildSourceSinkProgram(false)
	options := writeTaintConfig(t, `
sources:
  - { method: Src.get, type: T }
sinks:
  - { method: Snk.use, index: 0 }
`)

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), pta.Insensitive{})
	require.NoError(t, err)

	flows := res.TaintFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, src, flows[0].Source)
	assert.Equal(t, sink, flows[0].Sink)
	assert.Equal(t, 0, flows[0].Index)
}

func TestTaintArgToResultTransfer(t *testing.T) {
	prog, src, sink, y := buildSourceSinkProgram(true)
	options := writeTaintConfig(t, `
sources:
  - { method: Src.get, type: T }
sinks:
  - { method: Snk.use, index: 0 }
transfers:
  - { method: Wrap.of, from: 0, to: result, type: T }
`)

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), pta.Insensitive{})
	require.NoError(t, err)

	flows := res.TaintFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, src, flows[0].Source)
	assert.Equal(t, sink, flows[0].Sink)

	py := res.VarPointsTo(emptyCtx, y)
	require.Equal(t, 1, py.Len(), "y should hold exactly one taint object")
	assert.Equal(t, ir.Type("T"), py.Objects()[0].Object().Type())
}

func TestTaintBaseTransfers(t *testing.T) {
	// b = new Box; b.put(x) with x tainted taints b (arg-to-base);
	// r = b.take() then carries the taint out (base-to-result).
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	srcCls := prog.NewClass("Src", nil)
	snkCls := prog.NewClass("Snk", nil)
	boxCls := prog.NewClass("Box", nil)
	srcCls.NewMethod("get", true)
	snkCls.NewMethod("use", true).NewParam("p")
	boxCls.NewMethod("put", false).NewParam("v")
	boxCls.NewMethod("take", false)

	main := mainCls.NewMethod("main", true)
	x, b, r := main.NewVar("x"), main.NewVar("b"), main.NewVar("r")
	srcCall := main.Add(&ir.Invoke{Result: x, Class: srcCls, MethodName: "get"}).(*ir.Invoke)
	main.Add(&ir.New{Result: b, T: "Box"})
	main.Add(&ir.Invoke{Base: b, MethodName: "put", Args: []*ir.Var{x}})
	main.Add(&ir.Invoke{Result: r, Base: b, MethodName: "take"})
	sinkCall := main.Add(&ir.Invoke{Class: snkCls, MethodName: "use", Args: []*ir.Var{r}}).(*ir.Invoke)
	prog.Entry = main

	options := writeTaintConfig(t, `
sources:
  - { method: Src.get, type: T }
sinks:
  - { method: Snk.use, index: 0 }
transfers:
  - { method: Box.put, from: 0, to: base, type: T }
  - { method: Box.take, from: base, to: result, type: T }
`)

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), pta.Insensitive{})
	require.NoError(t, err)

	flows := res.TaintFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, srcCall, flows[0].Source)
	assert.Equal(t, sinkCall, flows[0].Sink)
}

func TestTaintCyclicTransfersTerminate(t *testing.T) {
	// x = Pass.id(y); y = Pass.id(x) builds a cyclic taint flow graph;
	// the delta discipline must still reach a fixed point.
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	srcCls := prog.NewClass("Src", nil)
	passCls := prog.NewClass("Pass", nil)
	srcCls.NewMethod("get", true)
	passCls.NewMethod("id", true).NewParam("p")

	main := mainCls.NewMethod("main", true)
	x, y := main.NewVar("x"), main.NewVar("y")
	main.Add(&ir.Invoke{Result: y, Class: srcCls, MethodName: "get"})
	main.Add(&ir.Invoke{Result: x, Class: passCls, MethodName: "id", Args: []*ir.Var{y}})
	main.Add(&ir.Invoke{Result: y, Class: passCls, MethodName: "id", Args: []*ir.Var{x}})
	prog.Entry = main

	options := writeTaintConfig(t, `
sources:
  - { method: Src.get, type: T }
transfers:
  - { method: Pass.id, from: 0, to: result, type: T }
`)

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), pta.Insensitive{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.VarPointsTo(emptyCtx, x).Objects())
	assert.NotEmpty(t, res.VarPointsTo(emptyCtx, y).Objects())
	assert.Empty(t, res.TaintFlows(), "no sinks configured")
}

func TestNoResultCallSkipsSourceInjection(t *testing.T) {
	prog := ir.NewProgram()
	mainCls := prog.NewClass("Main", nil)
	srcCls := prog.NewClass("Src", nil)
	srcCls.NewMethod("get", true)

	main := mainCls.NewMethod("main", true)
	main.Add(&ir.Invoke{Class: srcCls, MethodName: "get"}) // result discarded
	prog.Entry = main

	options := writeTaintConfig(t, `
sources:
  - { method: Src.get, type: T }
`)

	res, err := pta.Solve(prog, options, pta.NewAllocSiteModel(), pta.Insensitive{})
	require.NoError(t, err)
	assert.Empty(t, res.TaintFlows())
}

func TestMissingTaintConfigIsNoOp(t *testing.T) {
	prog, _, _, _ := buildSourceSinkProgram(false)
	res, err := pta.SolveInsensitive(prog, nil, pta.NewAllocSiteModel())
	require.NoError(t, err)
	assert.Empty(t, res.TaintFlows())
}
