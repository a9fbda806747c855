package pta

import (
	"fmt"

	"github.com/barrowsr/ptaint/ir"
)

// Pointer is a node in the pointer flow graph. Every node owns a
// points-to set; the concrete variants are CSVar, StaticField,
// InstanceField and ArrayIndex, all interned by the CSManager.
type Pointer interface {
	PointsToSet() *PointsToSet
	String() string
}

// CSVar is a local variable in a method context.
type CSVar struct {
	ctx Context
	v   *ir.Var
	pts PointsToSet
}

func (x *CSVar) Context() Context          { return x.ctx }
func (x *CSVar) Var() *ir.Var              { return x.v }
func (x *CSVar) PointsToSet() *PointsToSet { return &x.pts }
func (x *CSVar) String() string            { return fmt.Sprintf("%s:%s", x.ctx, x.v) }

// StaticField is the single context-free node of a static field.
type StaticField struct {
	field *ir.Field
	pts   PointsToSet
}

func (x *StaticField) Field() *ir.Field          { return x.field }
func (x *StaticField) PointsToSet() *PointsToSet { return &x.pts }
func (x *StaticField) String() string            { return x.field.String() }

// InstanceField is one node per (receiver object, field).
type InstanceField struct {
	base  *CSObj
	field *ir.Field
	pts   PointsToSet
}

func (x *InstanceField) Base() *CSObj              { return x.base }
func (x *InstanceField) Field() *ir.Field          { return x.field }
func (x *InstanceField) PointsToSet() *PointsToSet { return &x.pts }
func (x *InstanceField) String() string {
	return fmt.Sprintf("%s.%s", x.base, x.field.Name)
}

// ArrayIndex is one node per array object, collapsing all indices.
type ArrayIndex struct {
	array *CSObj
	pts   PointsToSet
}

func (x *ArrayIndex) Array() *CSObj             { return x.array }
func (x *ArrayIndex) PointsToSet() *PointsToSet { return &x.pts }
func (x *ArrayIndex) String() string            { return fmt.Sprintf("%s[*]", x.array) }

// CSObj is a context-sensitive heap object. Taint objects are always
// paired with the empty context.
type CSObj struct {
	ctx Context
	obj *Obj
}

func (o *CSObj) Context() Context { return o.ctx }
func (o *CSObj) Object() *Obj     { return o.obj }
func (o *CSObj) String() string   { return fmt.Sprintf("%s:%s", o.ctx, o.obj) }

// CSMethod is a method analyzed in a context.
type CSMethod struct {
	ctx Context
	m   *ir.Method
}

func (m *CSMethod) Context() Context   { return m.ctx }
func (m *CSMethod) Method() *ir.Method { return m.m }
func (m *CSMethod) String() string     { return fmt.Sprintf("%s:%s", m.ctx, m.m) }

// CSCallSite is an invoke statement in a caller context.
type CSCallSite struct {
	ctx  Context
	call *ir.Invoke
}

func (c *CSCallSite) Context() Context     { return c.ctx }
func (c *CSCallSite) CallSite() *ir.Invoke { return c.call }
func (c *CSCallSite) String() string       { return fmt.Sprintf("%s:%s", c.ctx, c.call) }
