package ast

// ExprKind discriminates the expression variants.
type ExprKind int

const (
	ExprStar ExprKind = iota
	ExprNamed
	ExprAliased
	ExprLiteral
	ExprAggregate
	ExprFuncCall
	ExprCoalesce
	ExprCaseWhen
	ExprColumnDef
	ExprWindow
	ExprColMod
	ExprSpecialFunc
)

// ColModKind discriminates column modifications inside a modify command.
type ColModKind int

const (
	ColModAdd ColModKind = iota
	ColModDrop
)

// CaseBranch couples a condition with the value produced when it matches.
type CaseBranch struct {
	When Cond
	Then Value
}

// ColumnDef describes a column inside a create-table or alter command.
type ColumnDef struct {
	Name        string
	DataType    string
	Constraints []string
	PrimaryKey  bool
	Unique      bool
	NotNull     bool
	Default     *Value
	References  string
}

// Expr represents a projection or returning expression. The Kind field
// selects which of the remaining fields carry the payload; dispatch over
// expressions is structural.
type Expr struct {
	Kind      ExprKind
	Name      string
	Alias     string
	Literal   Value
	Func      string
	Column    string
	Distinct  bool
	Args      []Expr
	Branches  []CaseBranch
	Else      *Value
	Def       ColumnDef
	Partition []string
	Order     []Order
	Mod       ColModKind
	Inner     *Expr
}

// Star constructs the * projection.
func Star() Expr { return Expr{Kind: ExprStar} }

// Col constructs a plain named column expression.
func Col(name string) Expr { return Expr{Kind: ExprNamed, Name: name} }

// ColAs constructs an aliased column expression.
func ColAs(name, alias string) Expr { return Expr{Kind: ExprAliased, Name: name, Alias: alias} }

// Lit constructs a literal expression.
func Lit(value Value) Expr { return Expr{Kind: ExprLiteral, Literal: value} }

// Count constructs COUNT(*) or COUNT(column) when a column is given.
func Count(column ...string) Expr {
	agg := Expr{Kind: ExprAggregate, Func: "COUNT"}
	if len(column) > 0 {
		agg.Column = column[0]
	}
	return agg
}

// CountDistinct constructs COUNT(DISTINCT column).
func CountDistinct(column string) Expr {
	return Expr{Kind: ExprAggregate, Func: "COUNT", Column: column, Distinct: true}
}

// Sum constructs SUM(column).
func Sum(column string) Expr { return Expr{Kind: ExprAggregate, Func: "SUM", Column: column} }

// SumDistinct constructs SUM(DISTINCT column).
func SumDistinct(column string) Expr {
	return Expr{Kind: ExprAggregate, Func: "SUM", Column: column, Distinct: true}
}

// Avg constructs AVG(column).
func Avg(column string) Expr { return Expr{Kind: ExprAggregate, Func: "AVG", Column: column} }

// AvgDistinct constructs AVG(DISTINCT column).
func AvgDistinct(column string) Expr {
	return Expr{Kind: ExprAggregate, Func: "AVG", Column: column, Distinct: true}
}

// Min constructs MIN(column).
func Min(column string) Expr { return Expr{Kind: ExprAggregate, Func: "MIN", Column: column} }

// Max constructs MAX(column).
func Max(column string) Expr { return Expr{Kind: ExprAggregate, Func: "MAX", Column: column} }

// FuncCall constructs a generic function call expression.
func FuncCall(name string, args ...Expr) Expr {
	return Expr{Kind: ExprFuncCall, Func: name, Args: args}
}

// Coalesce constructs COALESCE over the given expressions.
func Coalesce(exprs ...Expr) Expr { return Expr{Kind: ExprCoalesce, Args: exprs} }

// NullIf constructs NULLIF(a, b).
func NullIf(a, b Expr) Expr {
	return Expr{Kind: ExprSpecialFunc, Func: "NULLIF", Args: []Expr{a, b}}
}

// SpecialFunc constructs a special function expression such as NOW().
func SpecialFunc(name string, args ...Expr) Expr {
	return Expr{Kind: ExprSpecialFunc, Func: name, Args: args}
}

// CaseWhen constructs a CASE expression over the given branches with an
// optional else value.
func CaseWhen(branches []CaseBranch, elseValue *Value) Expr {
	return Expr{Kind: ExprCaseWhen, Branches: branches, Else: elseValue}
}

// Window constructs a window function expression partitioned and ordered by
// the given columns.
func Window(fn Expr, partition []string, order []Order) Expr {
	return Expr{Kind: ExprWindow, Func: fn.Func, Column: fn.Column, Partition: partition, Order: order}
}

// Def constructs a plain column definition with the given data type.
func Def(name, dataType string) Expr {
	return Expr{Kind: ExprColumnDef, Def: ColumnDef{Name: name, DataType: dataType}}
}

// DefWith constructs a column definition carrying the full constraint set.
func DefWith(def ColumnDef) Expr {
	return Expr{Kind: ExprColumnDef, Def: def}
}

// AddCol wraps the given column definition as an add modification inside a
// modify command.
func AddCol(inner Expr) Expr {
	return Expr{Kind: ExprColMod, Mod: ColModAdd, Inner: &inner}
}

// DropCol wraps the given column reference as a drop modification inside a
// modify command.
func DropCol(inner Expr) Expr {
	return Expr{Kind: ExprColMod, Mod: ColModDrop, Inner: &inner}
}

// As returns a copy of the expression carrying the given output alias.
func (e Expr) As(alias string) Expr {
	e.Alias = alias
	return e
}
