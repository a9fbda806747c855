// Package pta implements a whole-program, context-sensitive,
// inclusion-based pointer analysis over the ir package's representation,
// with a taint-propagation overlay that rides on the same fixed point.
//
// The solver is single-threaded; one Solve owns all interner tables and
// graphs for its duration.
package pta

import (
	"fmt"

	"github.com/barrowsr/ptaint/ir"
)

type objKind int

const (
	objAlloc objKind = iota
	objTaint
)

// Obj is a heap abstraction: either one allocation site (per heap context)
// or a synthetic taint object identified by its source call and type.
type Obj struct {
	kind   objKind
	site   *ir.New    // allocation site, nil for taint objects
	source *ir.Invoke // source call, nil for allocation objects
	typ    ir.Type
}

func (o *Obj) Type() ir.Type { return o.typ }

// Site returns the allocation site, or nil for taint objects.
func (o *Obj) Site() *ir.New { return o.site }

func (o *Obj) String() string {
	if o.kind == objTaint {
		return fmt.Sprintf("taint[%s: %s]", o.source, o.typ)
	}
	return fmt.Sprintf("%s@%s[%d]", o.typ, o.site.Method(), o.site.Index())
}

// HeapModel abstracts allocation statements into heap objects.
type HeapModel interface {
	GetObj(site *ir.New) *Obj
}

// AllocSiteModel is the standard allocation-site heap abstraction: one
// object per New statement.
type AllocSiteModel struct {
	objs map[*ir.New]*Obj
}

func NewAllocSiteModel() *AllocSiteModel {
	return &AllocSiteModel{objs: make(map[*ir.New]*Obj)}
}

func (h *AllocSiteModel) GetObj(site *ir.New) *Obj {
	if o, ok := h.objs[site]; ok {
		return o
	}
	o := &Obj{kind: objAlloc, site: site, typ: site.T}
	h.objs[site] = o
	return o
}
