package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrowsr/ptaint/ir"
)

func TestBuilderRegistersRelevantStatements(t *testing.T) {
	prog := ir.NewProgram()
	cls := prog.NewClass("C", nil)
	f := cls.NewField("f", "Object", false)
	g := cls.NewField("g", "Object", true)
	m := cls.NewMethod("m", false)
	v, w := m.NewVar("v"), m.NewVar("w")

	store := m.Add(&ir.StoreField{Base: v, Field: f, Value: w}).(*ir.StoreField)
	load := m.Add(&ir.LoadField{Result: w, Base: v, Field: f}).(*ir.LoadField)
	m.Add(&ir.StoreField{Field: g, Value: w}) // static, no base registration
	astore := m.Add(&ir.StoreArray{Base: v, Value: w}).(*ir.StoreArray)
	aload := m.Add(&ir.LoadArray{Result: w, Base: v}).(*ir.LoadArray)
	call := m.Add(&ir.Invoke{Base: v, MethodName: "m"}).(*ir.Invoke)

	assert.Equal(t, []*ir.StoreField{store}, v.StoreFields)
	assert.Equal(t, []*ir.LoadField{load}, v.LoadFields)
	assert.Equal(t, []*ir.StoreArray{astore}, v.StoreArrays)
	assert.Equal(t, []*ir.LoadArray{aload}, v.LoadArrays)
	assert.Equal(t, []*ir.Invoke{call}, v.Invokes)
	assert.Empty(t, w.StoreFields)

	for i, s := range m.IR.Stmts {
		assert.Equal(t, i, s.Index())
	}
}

func TestMethodStructure(t *testing.T) {
	prog := ir.NewProgram()
	cls := prog.NewClass("C", nil)

	instance := cls.NewMethod("m", false)
	require.NotNil(t, instance.IR.This)
	assert.Equal(t, "this", instance.IR.This.Name)

	static := cls.NewMethod("s", true)
	assert.Nil(t, static.IR.This)

	p := static.NewParam("p")
	assert.Equal(t, []*ir.Var{p}, static.IR.Params)
	assert.Contains(t, static.IR.Vars, p)
}

func TestResolveCallee(t *testing.T) {
	prog := ir.NewProgram()
	base := prog.NewClass("Base", nil)
	sub := prog.NewClass("Sub", base)
	other := prog.NewClass("Other", nil)
	bm := base.NewMethod("m", false)
	om := other.NewMethod("m", false)
	sm := sub.NewMethod("own", false)
	util := prog.NewClass("Util", nil)
	um := util.NewMethod("u", true)

	caller := prog.NewClass("Main", nil).NewMethod("main", true)
	recv := caller.NewVar("recv")
	virtual := caller.Add(&ir.Invoke{Base: recv, MethodName: "m"}).(*ir.Invoke)
	ownCall := caller.Add(&ir.Invoke{Base: recv, MethodName: "own"}).(*ir.Invoke)
	static := caller.Add(&ir.Invoke{Class: util, MethodName: "u"}).(*ir.Invoke)

	assert.Equal(t, bm, prog.ResolveCallee("Sub", virtual), "inherited method")
	assert.Equal(t, bm, prog.ResolveCallee("Base", virtual))
	assert.Equal(t, om, prog.ResolveCallee("Other", virtual))
	assert.Equal(t, sm, prog.ResolveCallee("Sub", ownCall))
	assert.Nil(t, prog.ResolveCallee("Base", ownCall), "not declared on Base")
	assert.Nil(t, prog.ResolveCallee("Ghost", virtual), "unknown receiver type")
	assert.Equal(t, um, prog.ResolveCallee("", static))
}

func TestCFG(t *testing.T) {
	prog := ir.NewProgram()
	m := prog.NewClass("Main", nil).NewMethod("main", true)
	a := m.Add(&ir.Return{})

	cfg := ir.NewCFG(m)
	cfg.AddEdge(cfg.Entry(), a, ir.FallThrough)
	cfg.AddEdge(a, cfg.Exit(), ir.ReturnEdge)

	assert.Len(t, cfg.Nodes(), 3)
	assert.Equal(t, []ir.Stmt{a}, cfg.SuccsOf(cfg.Entry()))
	assert.Equal(t, []ir.Stmt{cfg.Entry()}, cfg.PredsOf(a))
	require.Len(t, cfg.OutEdgesOf(a), 1)
	assert.Equal(t, ir.ReturnEdge, cfg.OutEdgesOf(a)[0].Kind)
	assert.Empty(t, cfg.OutEdgesOf(cfg.Exit()))
}
