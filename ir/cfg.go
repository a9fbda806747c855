package ir

// EdgeKind classifies control flow edges.
type EdgeKind int

const (
	FallThrough EdgeKind = iota
	Goto
	IfTrue
	IfFalse
	SwitchCase
	SwitchDefault
	ReturnEdge
)

// Edge is a typed control flow edge. CaseValue is meaningful only for
// SwitchCase edges.
type Edge struct {
	Kind      EdgeKind
	CaseValue int64
	Target    Stmt
}

// CFG is a per-method control flow graph with synthetic entry and exit
// nodes. It is an input of the dataflow analyses and the dead-code
// detector; the pointer analysis never looks at it.
type CFG struct {
	Method *Method

	entry, exit Stmt
	nodes       []Stmt
	nodeSet     map[Stmt]bool
	out         map[Stmt][]Edge
	preds       map[Stmt][]Stmt
}

func NewCFG(m *Method) *CFG {
	cfg := &CFG{
		Method:  m,
		entry:   &Nop{stmtBase{method: m, index: -1}},
		exit:    &Nop{stmtBase{method: m, index: -2}},
		nodeSet: make(map[Stmt]bool),
		out:     make(map[Stmt][]Edge),
		preds:   make(map[Stmt][]Stmt),
	}
	cfg.AddNode(cfg.entry)
	cfg.AddNode(cfg.exit)
	return cfg
}

func (c *CFG) Entry() Stmt { return c.entry }
func (c *CFG) Exit() Stmt  { return c.exit }

// Nodes returns all statements in the graph, including entry and exit, in
// insertion order.
func (c *CFG) Nodes() []Stmt { return c.nodes }

func (c *CFG) AddNode(s Stmt) {
	if !c.nodeSet[s] {
		c.nodeSet[s] = true
		c.nodes = append(c.nodes, s)
	}
}

func (c *CFG) AddEdge(from, to Stmt, kind EdgeKind) {
	c.addEdge(from, Edge{Kind: kind, Target: to})
}

// AddCaseEdge installs a SwitchCase edge matching the given constant.
func (c *CFG) AddCaseEdge(from, to Stmt, value int64) {
	c.addEdge(from, Edge{Kind: SwitchCase, CaseValue: value, Target: to})
}

func (c *CFG) addEdge(from Stmt, e Edge) {
	c.AddNode(from)
	c.AddNode(e.Target)
	c.out[from] = append(c.out[from], e)
	c.preds[e.Target] = append(c.preds[e.Target], from)
}

func (c *CFG) OutEdgesOf(s Stmt) []Edge { return c.out[s] }

func (c *CFG) PredsOf(s Stmt) []Stmt { return c.preds[s] }

func (c *CFG) SuccsOf(s Stmt) []Stmt {
	edges := c.out[s]
	succs := make([]Stmt, len(edges))
	for i, e := range edges {
		succs[i] = e.Target
	}
	return succs
}
