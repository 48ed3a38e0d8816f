// Package sqlast is the dialect-neutral SQL abstract syntax tree the
// analyzer operates on. The parser adapter (package sqlparse) is the
// only producer of this tree; everything downstream mutates and
// serializes it without ever touching a parser-specific representation.
package sqlast

// Node is implemented by every AST node.
type Node interface {
	isNode()
}

// Query is implemented by every node that can stand as a top-level or
// nested query: Select, SetOp, and With.
type Query interface {
	Node
	isQuery()
}

// Select is a single SELECT statement: projections, a source, and the
// usual trailing clauses. Any field may be nil/empty when absent.
type Select struct {
	Projections []*Projection
	From        *Source
	Where       Expr
	GroupBy     []Expr
	Having      Expr
	OrderBy     []*OrderItem
	Limit       Expr
	Offset      Expr
}

func (*Select) isNode()  {}
func (*Select) isQuery() {}

// Projection is one entry of a SELECT's projection list: either a bare
// "*", a qualified "t.*", or an expression with an optional alias.
type Projection struct {
	Expr      Expr
	Alias     string
	Star      bool
	StarTable string
}

// SetOp is a UNION/INTERSECT/EXCEPT combining two queries.
type SetOp struct {
	Op    string // "UNION", "INTERSECT", "EXCEPT"
	All   bool
	Left  Query
	Right Query
}

func (*SetOp) isNode()  {}
func (*SetOp) isQuery() {}

// CTE is one named binding of a WITH clause.
type CTE struct {
	Name  string
	Query Query
}

// With is a WITH clause plus the query it scopes.
type With struct {
	CTEs []*CTE
	Body Query
}

func (*With) isNode()  {}
func (*With) isQuery() {}

// Source is a FROM/JOIN source: a table reference, a subquery, or a
// join of two further sources. Exactly one of Table, Subquery, or Join
// is set.
type Source struct {
	Table    string
	Alias    string
	Subquery Query
	Join     *Join
}

func (*Source) isNode() {}

// Join combines two sources with a join kind and an ON or USING
// condition.
type Join struct {
	Left  *Source
	Right *Source
	Kind  string // "INNER", "LEFT", "RIGHT", "FULL", "CROSS"
	On    Expr
	Using []string
}

func (*Join) isNode() {}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr Expr
	Desc bool
}
