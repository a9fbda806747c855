// Package ir defines the object-oriented intermediate representation that
// the analyses in this module consume: a program is a set of classes with
// single inheritance, classes declare fields and methods, and a method body
// is a flat list of statements over local variables.
//
// The representation is deliberately unordered for the pointer analysis:
// statement indices matter only to the per-method control flow graph and
// the dead-code detector.
package ir

import "fmt"

// Type names a class. The zero value denotes "no type" (static dispatch).
type Type string

type Program struct {
	Classes map[string]*Class
	// Entry is the method analyses start from, conventionally main.
	Entry *Method
}

func NewProgram() *Program {
	return &Program{Classes: make(map[string]*Class)}
}

func (p *Program) NewClass(name string, super *Class) *Class {
	if _, ok := p.Classes[name]; ok {
		panic(fmt.Errorf("class %s declared twice", name))
	}
	c := &Class{
		Name:    name,
		Super:   super,
		Methods: make(map[string]*Method),
		Fields:  make(map[string]*Field),
	}
	p.Classes[name] = c
	return c
}

// ResolveCallee resolves the target method of a call site. Static calls
// dispatch on the declaring class of the call; instance calls dispatch on
// recv, walking up the superclass chain. Returns nil when no method is
// found, which callers treat as "no call edge".
func (p *Program) ResolveCallee(recv Type, call *Invoke) *Method {
	if call.Static() {
		return call.Class.lookup(call.MethodName)
	}
	cls := p.Classes[string(recv)]
	if cls == nil {
		return nil
	}
	return cls.lookup(call.MethodName)
}

type Class struct {
	Name    string
	Super   *Class
	Methods map[string]*Method
	Fields  map[string]*Field
}

func (c *Class) Type() Type { return Type(c.Name) }

func (c *Class) String() string { return c.Name }

func (c *Class) lookup(name string) *Method {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

func (c *Class) NewMethod(name string, static bool) *Method {
	m := &Method{Class: c, Name: name, Static: static, IR: new(IR)}
	if !static {
		m.IR.This = m.NewVar("this")
	}
	c.Methods[name] = m
	return m
}

func (c *Class) NewField(name string, typ Type, static bool) *Field {
	f := &Field{Class: c, Name: name, Type: typ, Static: static}
	c.Fields[name] = f
	return f
}

type Method struct {
	Class  *Class
	Name   string
	Static bool
	IR     *IR
}

func (m *Method) String() string { return m.Class.Name + "." + m.Name }

// IR is a method body.
type IR struct {
	This       *Var
	Params     []*Var
	ReturnVars []*Var
	Vars       []*Var
	Stmts      []Stmt
}

func (m *Method) NewVar(name string) *Var {
	v := &Var{Method: m, Name: name}
	m.IR.Vars = append(m.IR.Vars, v)
	return v
}

// NewParam declares a fresh variable and appends it to the parameter list.
func (m *Method) NewParam(name string) *Var {
	v := m.NewVar(name)
	m.IR.Params = append(m.IR.Params, v)
	return v
}

func (m *Method) AddReturnVar(v *Var) {
	m.IR.ReturnVars = append(m.IR.ReturnVars, v)
}

// Add appends s to the method body, assigns its statement index and
// registers it in the relevant-statement lists of the variables it touches.
func (m *Method) Add(s Stmt) Stmt {
	s.setParent(m, len(m.IR.Stmts))
	m.IR.Stmts = append(m.IR.Stmts, s)
	switch s := s.(type) {
	case *StoreField:
		if s.Base != nil {
			s.Base.StoreFields = append(s.Base.StoreFields, s)
		}
	case *LoadField:
		if s.Base != nil {
			s.Base.LoadFields = append(s.Base.LoadFields, s)
		}
	case *StoreArray:
		s.Base.StoreArrays = append(s.Base.StoreArrays, s)
	case *LoadArray:
		s.Base.LoadArrays = append(s.Base.LoadArrays, s)
	case *Invoke:
		if s.Base != nil {
			s.Base.Invokes = append(s.Base.Invokes, s)
		}
	}
	return s
}

type Field struct {
	Class  *Class
	Name   string
	Type   Type
	Static bool
}

func (f *Field) String() string { return f.Class.Name + "." + f.Name }

// Var is a method-local variable. The relevant-statement lists record the
// instance accesses and calls that use this variable as their base; they
// drive the receiver-dependent part of the pointer analysis.
type Var struct {
	Method *Method
	Name   string

	StoreFields []*StoreField
	LoadFields  []*LoadField
	StoreArrays []*StoreArray
	LoadArrays  []*LoadArray
	Invokes     []*Invoke
}

func (v *Var) String() string { return v.Method.String() + "/" + v.Name }
