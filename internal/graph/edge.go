package graph

// Label names the semantic of an edge.
type Label string

const (
	// EOG orders evaluations: an edge runs from a node to the node
	// evaluated next.
	EOG Label = "EOG"
	// DFG runs from a value source (write) to a later read or to the
	// written declaration.
	DFG Label = "DFG"
	// RefersTo connects a reference expression to the value declarations
	// it resolved to.
	RefersTo Label = "REFERS_TO"
	// Invokes connects a call expression to its candidate callees.
	Invokes Label = "INVOKES"
	// SuperClass connects a record to a resolved base record.
	SuperClass Label = "SUPER_CLASS"
	// Reaches is the optional transitive closure over Invokes.
	Reaches Label = "REACHES"
)

// Edge is a directed, labelled connection between two nodes. Edges are
// stored in both endpoints' lists; insertion order is preserved, which
// makes ordered relations (arguments, statement sequences) implicit.
type Edge struct {
	From  Node
	To    Node
	Label Label

	// Index carries an argument or child position where ordering is
	// semantically meaningful.
	Index int
	// Branch distinguishes EOG successors of a conditional evaluation:
	// true for the taken branch, false for the fall-through.
	Branch *bool
}

// AddEdge connects from to to under the given label and returns the edge.
func AddEdge(from Node, label Label, to Node) *Edge {
	e := &Edge{From: from, To: to, Label: label}
	from.Base().out = append(from.Base().out, e)
	to.Base().in = append(to.Base().in, e)
	return e
}

// HasEdge reports whether an edge from from to to with the label exists.
func HasEdge(from Node, label Label, to Node) bool {
	for _, e := range from.Base().out {
		if e.Label == label && e.To == to {
			return true
		}
	}
	return false
}

// Disconnect severs every incoming and outgoing edge of n. The node stays
// allocated, so references held elsewhere remain valid.
func Disconnect(n Node) {
	b := n.Base()
	for _, e := range b.out {
		other := e.To.Base()
		other.in = removeEdge(other.in, e)
	}
	for _, e := range b.in {
		other := e.From.Base()
		other.out = removeEdge(other.out, e)
	}
	b.out = nil
	b.in = nil
}

func removeEdge(edges []*Edge, victim *Edge) []*Edge {
	for i, e := range edges {
		if e == victim {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

func outTargets(n Node, label Label) []Node {
	var out []Node
	for _, e := range n.Base().out {
		if e.Label == label {
			out = append(out, e.To)
		}
	}
	return out
}

func inSources(n Node, label Label) []Node {
	var out []Node
	for _, e := range n.Base().in {
		if e.Label == label {
			out = append(out, e.From)
		}
	}
	return out
}

// EOGSuccessors returns the nodes evaluated directly after n.
func EOGSuccessors(n Node) []Node { return outTargets(n, EOG) }

// EOGPredecessors returns the nodes evaluated directly before n.
func EOGPredecessors(n Node) []Node { return inSources(n, EOG) }

// DFGPredecessors returns the value sources flowing into n.
func DFGPredecessors(n Node) []Node { return inSources(n, DFG) }

// RefersToTargets returns the value declarations a reference resolved to.
func RefersToTargets(n Node) []ValueDeclaration {
	var out []ValueDeclaration
	for _, t := range outTargets(n, RefersTo) {
		if vd, ok := t.(ValueDeclaration); ok {
			out = append(out, vd)
		}
	}
	return out
}

// InvokesTargets returns the candidate callees of a call expression.
func InvokesTargets(n Node) []*FunctionDecl {
	var out []*FunctionDecl
	for _, t := range outTargets(n, Invokes) {
		switch d := t.(type) {
		case *FunctionDecl:
			out = append(out, d)
		case *MethodDecl:
			out = append(out, &d.FunctionDecl)
		case *ConstructorDecl:
			out = append(out, &d.FunctionDecl)
		}
	}
	return out
}

// SuperRecords returns the resolved base records of a record declaration.
func SuperRecords(n Node) []*RecordDecl {
	var out []*RecordDecl
	for _, t := range outTargets(n, SuperClass) {
		if r, ok := t.(*RecordDecl); ok {
			out = append(out, r)
		}
	}
	return out
}
