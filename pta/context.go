package pta

import (
	"fmt"
	"strings"

	"github.com/barrowsr/ptaint/ir"
)

// Context is an opaque analysis context. Implementations must be
// comparable values: two contexts are the same context iff they compare
// equal with ==. The empty context is the distinguished value returned by
// (ContextSelector).EmptyContext.
type Context interface {
	fmt.Stringer
}

// ContextSelector decides the contexts of methods, heap objects, and call
// sites. The solver treats the returned contexts as opaque tokens.
type ContextSelector interface {
	EmptyContext() Context
	// SelectStaticContext chooses the callee context for a static call.
	SelectStaticContext(callSite *CSCallSite, callee *ir.Method) Context
	// SelectContext chooses the callee context for an instance call with
	// the given receiver object.
	SelectContext(callSite *CSCallSite, recv *CSObj, callee *ir.Method) Context
	// SelectHeapContext chooses the heap context for an object allocated
	// in the given method.
	SelectHeapContext(method *CSMethod, obj *Obj) Context
}

type emptyContext struct{}

func (emptyContext) String() string { return "[]" }

// callStringContext is a k-limited call string, most recent call first.
// Structural equality of the chain gives context equality.
type callStringContext struct {
	head *ir.Invoke
	tail Context
}

func (c callStringContext) String() string {
	var elems []string
	var cur Context = c
	for {
		cs, ok := cur.(callStringContext)
		if !ok {
			break
		}
		elems = append(elems, cs.head.String())
		cur = cs.tail
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func pushCall(ctx Context, call *ir.Invoke, k int) Context {
	if k <= 0 {
		return emptyContext{}
	}
	return callStringContext{head: call, tail: truncate(ctx, k-1)}
}

func truncate(ctx Context, k int) Context {
	if k <= 0 {
		return emptyContext{}
	}
	if cs, ok := ctx.(callStringContext); ok {
		return callStringContext{head: cs.head, tail: truncate(cs.tail, k-1)}
	}
	return ctx
}

// objContext is a receiver-object context.
type objContext struct {
	obj *Obj
}

func (c objContext) String() string { return "[" + c.obj.String() + "]" }

// Insensitive assigns the empty context to everything, reducing the solver
// to a context-insensitive analysis.
type Insensitive struct{}

func (Insensitive) EmptyContext() Context { return emptyContext{} }

func (Insensitive) SelectStaticContext(*CSCallSite, *ir.Method) Context {
	return emptyContext{}
}

func (Insensitive) SelectContext(*CSCallSite, *CSObj, *ir.Method) Context {
	return emptyContext{}
}

func (Insensitive) SelectHeapContext(*CSMethod, *Obj) Context {
	return emptyContext{}
}

// KCallSite is k-limited call-site sensitivity with k-1 heap contexts.
// K=1 is the classic 1-call-site policy.
type KCallSite struct {
	K int
}

func (KCallSite) EmptyContext() Context { return emptyContext{} }

func (s KCallSite) SelectStaticContext(cs *CSCallSite, _ *ir.Method) Context {
	return pushCall(cs.Context(), cs.CallSite(), s.K)
}

func (s KCallSite) SelectContext(cs *CSCallSite, _ *CSObj, _ *ir.Method) Context {
	return pushCall(cs.Context(), cs.CallSite(), s.K)
}

func (s KCallSite) SelectHeapContext(m *CSMethod, _ *Obj) Context {
	return truncate(m.Context(), s.K-1)
}

// OneObject is 1-object sensitivity: instance callees are analyzed in the
// context of their receiver object; heap contexts stay empty.
type OneObject struct{}

func (OneObject) EmptyContext() Context { return emptyContext{} }

func (OneObject) SelectStaticContext(cs *CSCallSite, _ *ir.Method) Context {
	return cs.Context()
}

func (OneObject) SelectContext(_ *CSCallSite, recv *CSObj, _ *ir.Method) Context {
	return objContext{obj: recv.Object()}
}

func (OneObject) SelectHeapContext(*CSMethod, *Obj) Context {
	return emptyContext{}
}
