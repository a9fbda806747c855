package pta

import "github.com/barrowsr/ptaint/ir"

type csVarKey struct {
	ctx Context
	v   *ir.Var
}

type instanceFieldKey struct {
	base  *CSObj
	field *ir.Field
}

type csObjKey struct {
	ctx Context
	obj *Obj
}

type csMethodKey struct {
	ctx Context
	m   *ir.Method
}

type csCallSiteKey struct {
	ctx  Context
	call *ir.Invoke
}

// CSManager interns every context-sensitive element. For any (context,
// element) pair at most one node exists per manager; all Get operations
// are total and create the canonical node on first demand.
type CSManager struct {
	vars           map[csVarKey]*CSVar
	staticFields   map[*ir.Field]*StaticField
	instanceFields map[instanceFieldKey]*InstanceField
	arrayIndexes   map[*CSObj]*ArrayIndex
	objs           map[csObjKey]*CSObj
	methods        map[csMethodKey]*CSMethod
	callSites      map[csCallSiteKey]*CSCallSite
}

func NewCSManager() *CSManager {
	return &CSManager{
		vars:           make(map[csVarKey]*CSVar),
		staticFields:   make(map[*ir.Field]*StaticField),
		instanceFields: make(map[instanceFieldKey]*InstanceField),
		arrayIndexes:   make(map[*CSObj]*ArrayIndex),
		objs:           make(map[csObjKey]*CSObj),
		methods:        make(map[csMethodKey]*CSMethod),
		callSites:      make(map[csCallSiteKey]*CSCallSite),
	}
}

func (m *CSManager) GetCSVar(ctx Context, v *ir.Var) *CSVar {
	key := csVarKey{ctx, v}
	if x, ok := m.vars[key]; ok {
		return x
	}
	x := &CSVar{ctx: ctx, v: v}
	m.vars[key] = x
	return x
}

func (m *CSManager) GetStaticField(f *ir.Field) *StaticField {
	if x, ok := m.staticFields[f]; ok {
		return x
	}
	x := &StaticField{field: f}
	m.staticFields[f] = x
	return x
}

func (m *CSManager) GetInstanceField(base *CSObj, f *ir.Field) *InstanceField {
	key := instanceFieldKey{base, f}
	if x, ok := m.instanceFields[key]; ok {
		return x
	}
	x := &InstanceField{base: base, field: f}
	m.instanceFields[key] = x
	return x
}

func (m *CSManager) GetArrayIndex(array *CSObj) *ArrayIndex {
	if x, ok := m.arrayIndexes[array]; ok {
		return x
	}
	x := &ArrayIndex{array: array}
	m.arrayIndexes[array] = x
	return x
}

func (m *CSManager) GetCSObj(ctx Context, obj *Obj) *CSObj {
	key := csObjKey{ctx, obj}
	if x, ok := m.objs[key]; ok {
		return x
	}
	x := &CSObj{ctx: ctx, obj: obj}
	m.objs[key] = x
	return x
}

func (m *CSManager) GetCSMethod(ctx Context, method *ir.Method) *CSMethod {
	key := csMethodKey{ctx, method}
	if x, ok := m.methods[key]; ok {
		return x
	}
	x := &CSMethod{ctx: ctx, m: method}
	m.methods[key] = x
	return x
}

func (m *CSManager) GetCSCallSite(ctx Context, call *ir.Invoke) *CSCallSite {
	key := csCallSiteKey{ctx, call}
	if x, ok := m.callSites[key]; ok {
		return x
	}
	x := &CSCallSite{ctx: ctx, call: call}
	m.callSites[key] = x
	return x
}
