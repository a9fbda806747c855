// Package progfile loads programs for analysis from a YAML description:
// classes with fields and methods, method bodies as statement lists. It
// is the input format of the ptaint command and of end-to-end fixtures.
package progfile

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/barrowsr/ptaint/internal/slices"
	"github.com/barrowsr/ptaint/ir"
)

type File struct {
	// Entry names the entry method as Class.method.
	Entry   string
	Classes []ClassDef
}

type ClassDef struct {
	Name    string
	Super   string
	Fields  []FieldDef
	Methods []MethodDef
}

type FieldDef struct {
	Name   string
	Type   string
	Static bool
}

type MethodDef struct {
	Name    string
	Static  bool
	Params  []string
	Returns []string
	Stmts   []StmtDef
}

// StmtDef is one statement; Op selects the shape and the other fields
// fill it in.
type StmtDef struct {
	Op    string
	To    string
	From  string
	Type  string
	Base  string
	Field string
	Value string
	// call target and arguments; Class is read only for static calls
	Class  string
	Method string
	Args   []string
}

func Load(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func Parse(data []byte) (*ir.Program, error) {
	var file File
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}

	prog := ir.NewProgram()

	// Classes first so that supers, field refs and method refs resolve
	// regardless of declaration order.
	for _, c := range file.Classes {
		if _, ok := prog.Classes[c.Name]; ok {
			return nil, fmt.Errorf("class %s declared twice", c.Name)
		}
		prog.NewClass(c.Name, nil)
	}
	for _, c := range file.Classes {
		cls := prog.Classes[c.Name]
		if c.Super != "" {
			super := prog.Classes[c.Super]
			if super == nil {
				return nil, fmt.Errorf("class %s: unknown super class %s", c.Name, c.Super)
			}
			cls.Super = super
		}
		for _, f := range c.Fields {
			cls.NewField(f.Name, ir.Type(f.Type), f.Static)
		}
		for _, m := range c.Methods {
			cls.NewMethod(m.Name, m.Static)
		}
	}

	for _, c := range file.Classes {
		cls := prog.Classes[c.Name]
		for _, m := range c.Methods {
			if err := buildBody(prog, cls.Methods[m.Name], m); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", c.Name, m.Name, err)
			}
		}
	}

	entry, err := findMethod(prog, file.Entry)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	prog.Entry = entry
	return prog, nil
}

type bodyBuilder struct {
	prog   *ir.Program
	method *ir.Method
	vars   map[string]*ir.Var
}

func (b *bodyBuilder) varOf(name string) (*ir.Var, error) {
	if name == "" {
		return nil, fmt.Errorf("missing variable name")
	}
	if v, ok := b.vars[name]; ok {
		return v, nil
	}
	v := b.method.NewVar(name)
	b.vars[name] = v
	return v, nil
}

func (b *bodyBuilder) optVarOf(name string) (*ir.Var, error) {
	if name == "" {
		return nil, nil
	}
	return b.varOf(name)
}

func buildBody(prog *ir.Program, method *ir.Method, def MethodDef) error {
	b := &bodyBuilder{prog: prog, method: method, vars: make(map[string]*ir.Var)}
	if method.IR.This != nil {
		b.vars[method.IR.This.Name] = method.IR.This
	}
	for i, name := range def.Params {
		if slices.Contains(def.Params[:i], name) {
			return fmt.Errorf("duplicate parameter %s", name)
		}
		p := method.NewParam(name)
		b.vars[name] = p
	}
	for _, name := range def.Returns {
		v, err := b.varOf(name)
		if err != nil {
			return err
		}
		method.AddReturnVar(v)
	}

	for i, s := range def.Stmts {
		stmt, err := b.buildStmt(s)
		if err != nil {
			return fmt.Errorf("stmt %d (%s): %w", i, s.Op, err)
		}
		method.Add(stmt)
	}
	return nil
}

func (b *bodyBuilder) buildStmt(s StmtDef) (ir.Stmt, error) {
	switch s.Op {
	case "new":
		to, err := b.varOf(s.To)
		if err != nil {
			return nil, err
		}
		if s.Type == "" {
			return nil, fmt.Errorf("missing type")
		}
		return &ir.New{Result: to, T: ir.Type(s.Type)}, nil

	case "copy":
		to, err := b.varOf(s.To)
		if err != nil {
			return nil, err
		}
		from, err := b.varOf(s.From)
		if err != nil {
			return nil, err
		}
		return &ir.Copy{Result: to, Source: from}, nil

	case "storefield":
		field, err := findField(b.prog, s.Field)
		if err != nil {
			return nil, err
		}
		value, err := b.varOf(s.Value)
		if err != nil {
			return nil, err
		}
		base, err := b.optVarOf(s.Base)
		if err != nil {
			return nil, err
		}
		return &ir.StoreField{Base: base, Field: field, Value: value}, nil

	case "loadfield":
		field, err := findField(b.prog, s.Field)
		if err != nil {
			return nil, err
		}
		to, err := b.varOf(s.To)
		if err != nil {
			return nil, err
		}
		base, err := b.optVarOf(s.Base)
		if err != nil {
			return nil, err
		}
		return &ir.LoadField{Result: to, Base: base, Field: field}, nil

	case "storearray":
		base, err := b.varOf(s.Base)
		if err != nil {
			return nil, err
		}
		value, err := b.varOf(s.Value)
		if err != nil {
			return nil, err
		}
		return &ir.StoreArray{Base: base, Value: value}, nil

	case "loadarray":
		to, err := b.varOf(s.To)
		if err != nil {
			return nil, err
		}
		base, err := b.varOf(s.Base)
		if err != nil {
			return nil, err
		}
		return &ir.LoadArray{Result: to, Base: base}, nil

	case "call":
		to, err := b.optVarOf(s.To)
		if err != nil {
			return nil, err
		}
		base, err := b.optVarOf(s.Base)
		if err != nil {
			return nil, err
		}
		if s.Method == "" {
			return nil, fmt.Errorf("missing method name")
		}
		var cls *ir.Class
		if base == nil {
			cls = b.prog.Classes[s.Class]
			if cls == nil {
				return nil, fmt.Errorf("unknown class %q", s.Class)
			}
		}
		args := make([]*ir.Var, len(s.Args))
		for i, a := range s.Args {
			if args[i], err = b.varOf(a); err != nil {
				return nil, err
			}
		}
		return &ir.Invoke{Result: to, Base: base, Class: cls, MethodName: s.Method, Args: args}, nil

	case "return":
		v, err := b.optVarOf(s.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Return{Value: v}, nil

	default:
		return nil, fmt.Errorf("unknown statement op %q", s.Op)
	}
}

func findMethod(prog *ir.Program, name string) (*ir.Method, error) {
	cls, method, ok := strings.Cut(name, ".")
	if !ok {
		return nil, fmt.Errorf("%q is not of the form Class.method", name)
	}
	c := prog.Classes[cls]
	if c == nil {
		return nil, fmt.Errorf("unknown class %s", cls)
	}
	m := c.Methods[method]
	if m == nil {
		return nil, fmt.Errorf("class %s has no method %s", cls, method)
	}
	return m, nil
}

func findField(prog *ir.Program, name string) (*ir.Field, error) {
	cls, field, ok := strings.Cut(name, ".")
	if !ok {
		return nil, fmt.Errorf("field %q is not of the form Class.field", name)
	}
	c := prog.Classes[cls]
	if c == nil {
		return nil, fmt.Errorf("unknown class %s", cls)
	}
	f := c.Fields[field]
	if f == nil {
		return nil, fmt.Errorf("class %s has no field %s", cls, field)
	}
	return f, nil
}
