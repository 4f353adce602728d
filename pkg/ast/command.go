// Package ast contains the command graph used to describe relational commands
// without rendering them to SQL strings up front. Commands are plain values,
// builder methods return a modified copy and never fail. Malformed commands
// are detected when the command is rendered.
package ast

// Kind discriminates the top-level command variants.
type Kind int

const (
	KindGet Kind = iota
	KindSet
	KindDel
	KindAdd
	KindMake
	KindDrop
	KindAlter
	KindAlterDrop
	KindMod
	KindIndex
	KindDropIndex
	KindTruncate
	KindBegin
	KindCommit
	KindRollback
	KindSavepoint
	KindRelease
	KindRollbackTo
	KindListen
	KindNotify
	KindUnlisten
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "get"
	case KindSet:
		return "set"
	case KindDel:
		return "del"
	case KindAdd:
		return "add"
	case KindMake:
		return "make"
	case KindDrop:
		return "drop"
	case KindAlter:
		return "alter"
	case KindAlterDrop:
		return "alter_drop"
	case KindMod:
		return "mod"
	case KindIndex:
		return "index"
	case KindDropIndex:
		return "drop_index"
	case KindTruncate:
		return "truncate"
	case KindBegin:
		return "begin"
	case KindCommit:
		return "commit"
	case KindRollback:
		return "rollback"
	case KindSavepoint:
		return "savepoint"
	case KindRelease:
		return "release"
	case KindRollbackTo:
		return "rollback_to"
	case KindListen:
		return "listen"
	case KindNotify:
		return "notify"
	case KindUnlisten:
		return "unlisten"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Assignment couples a column with the value assigned to it inside an update
// command.
type Assignment struct {
	Column string
	Value  Value
}

// Command represents a single executable relational command. A command is
// immutable after construction, the fluent builder methods operate on copies.
type Command struct {
	Kind       Kind
	Table      string
	TableAlias string
	Columns    []Expr
	Joins      []Join
	Wheres     []Where
	Assign     []Assignment
	Rows       [][]Value
	GroupBy    []string
	Having     []Where
	OrderBy    []Order
	Limit      int64
	HasLimit   bool
	Offset     int64
	HasOffset  bool
	Distinct   bool
	ForUpdate  bool
	Returning  []Expr
	Index      IndexDef
	Savepoint  string
	Channel    string
	Payload    string
	RawSQL     string
}

// Get constructs a reading command for the given table. An empty projection
// renders as "*".
func Get(table string) Command { return Command{Kind: KindGet, Table: table} }

// Set constructs an update command for the given table.
func Set(table string) Command { return Command{Kind: KindSet, Table: table} }

// Add constructs an insert command for the given table.
func Add(table string) Command { return Command{Kind: KindAdd, Table: table} }

// Del constructs a delete command for the given table.
func Del(table string) Command { return Command{Kind: KindDel, Table: table} }

// Make constructs a create-table command for the given table.
func Make(table string) Command { return Command{Kind: KindMake, Table: table} }

// Drop constructs a drop-table command for the given table.
func Drop(table string) Command { return Command{Kind: KindDrop, Table: table} }

// Alter constructs an add-column alteration of the given table. Projection
// expressions must be column definitions.
func Alter(table string) Command { return Command{Kind: KindAlter, Table: table} }

// AlterDrop constructs a drop-column alteration of the given table.
func AlterDrop(table string) Command { return Command{Kind: KindAlterDrop, Table: table} }

// Modify constructs a mixed column alteration of the given table. Projection
// expressions must be column modifications (see [AddCol] and [DropCol]).
func Modify(table string) Command { return Command{Kind: KindMod, Table: table} }

// CreateIndex constructs a create-index command on the given table. The index
// name and columns are supplied through [Command.IndexName] and
// [Command.IndexColumns].
func CreateIndex(table string) Command { return Command{Kind: KindIndex, Table: table} }

// DropIndex constructs a drop-index command for the given index name.
func DropIndex(name string) Command {
	return Command{Kind: KindDropIndex, Index: IndexDef{Name: name}}
}

// Truncate constructs a truncate command for the given table.
func Truncate(table string) Command { return Command{Kind: KindTruncate, Table: table} }

// BeginTx constructs a begin-transaction command.
func BeginTx() Command { return Command{Kind: KindBegin} }

// CommitTx constructs a commit-transaction command.
func CommitTx() Command { return Command{Kind: KindCommit} }

// RollbackTx constructs a rollback-transaction command.
func RollbackTx() Command { return Command{Kind: KindRollback} }

// NewSavepoint constructs a savepoint command with the given name.
func NewSavepoint(name string) Command { return Command{Kind: KindSavepoint, Savepoint: name} }

// Release constructs a release-savepoint command with the given name.
func Release(name string) Command { return Command{Kind: KindRelease, Savepoint: name} }

// RollbackTo constructs a rollback-to-savepoint command with the given name.
func RollbackTo(name string) Command { return Command{Kind: KindRollbackTo, Savepoint: name} }

// NewListen constructs a listen command for the given channel.
func NewListen(channel string) Command { return Command{Kind: KindListen, Channel: channel} }

// NewNotify constructs a notify command for the given channel carrying the
// given payload. An empty payload notifies without one.
func NewNotify(channel, payload string) Command {
	return Command{Kind: KindNotify, Channel: channel, Payload: payload}
}

// NewUnlisten constructs an unlisten command for the given channel. An empty
// channel cancels all subscriptions.
func NewUnlisten(channel string) Command { return Command{Kind: KindUnlisten, Channel: channel} }

// Raw constructs a command wrapping a raw SQL string. The escape hatch for
// statements the command graph cannot express.
func Raw(sql string) Command { return Command{Kind: KindRaw, RawSQL: sql} }

// Select sets the projection expressions of the command.
func (c Command) Select(columns ...Expr) Command {
	c.Columns = append(c.Columns[:len(c.Columns):len(c.Columns)], columns...)
	return c
}

// Alias sets the table alias.
func (c Command) Alias(alias string) Command {
	c.TableAlias = alias
	return c
}

// Join appends the given joins.
func (c Command) Join(joins ...Join) Command {
	c.Joins = append(c.Joins[:len(c.Joins):len(c.Joins)], joins...)
	return c
}

// Where appends the given conditions, each connected to the previous clause
// with AND. The connector of the first clause is ignored while rendering.
func (c Command) Where(conds ...Cond) Command {
	wheres := c.Wheres[:len(c.Wheres):len(c.Wheres)]
	for _, cond := range conds {
		wheres = append(wheres, Where{Connector: ConnectorAnd, Cond: cond})
	}
	c.Wheres = wheres
	return c
}

// OrWhere appends the given condition connected to the previous clause with OR.
func (c Command) OrWhere(cond Cond) Command {
	c.Wheres = append(c.Wheres[:len(c.Wheres):len(c.Wheres)], Where{Connector: ConnectorOr, Cond: cond})
	return c
}

// GroupByColumns sets the group-by columns.
func (c Command) GroupByColumns(columns ...string) Command {
	c.GroupBy = append(c.GroupBy[:len(c.GroupBy):len(c.GroupBy)], columns...)
	return c
}

// HavingCond appends the given having conditions connected with AND.
func (c Command) HavingCond(conds ...Cond) Command {
	having := c.Having[:len(c.Having):len(c.Having)]
	for _, cond := range conds {
		having = append(having, Where{Connector: ConnectorAnd, Cond: cond})
	}
	c.Having = having
	return c
}

// OrderByColumns appends the given order specifiers.
func (c Command) OrderByColumns(orders ...Order) Command {
	c.OrderBy = append(c.OrderBy[:len(c.OrderBy):len(c.OrderBy)], orders...)
	return c
}

// WithLimit sets the maximum number of returned rows.
func (c Command) WithLimit(n int64) Command {
	c.Limit = n
	c.HasLimit = true
	return c
}

// WithOffset sets the number of skipped rows.
func (c Command) WithOffset(n int64) Command {
	c.Offset = n
	c.HasOffset = true
	return c
}

// WithDistinct marks the projection as distinct.
func (c Command) WithDistinct() Command {
	c.Distinct = true
	return c
}

// WithForUpdate marks the read for update.
func (c Command) WithForUpdate() Command {
	c.ForUpdate = true
	return c
}

// WithReturning sets the returning expressions of a mutation.
func (c Command) WithReturning(columns ...Expr) Command {
	c.Returning = append(c.Returning[:len(c.Returning):len(c.Returning)], columns...)
	return c
}

// SetColumn appends an assignment to an update command.
func (c Command) SetColumn(column string, value Value) Command {
	c.Assign = append(c.Assign[:len(c.Assign):len(c.Assign)], Assignment{Column: column, Value: value})
	return c
}

// Values appends a row of insert values.
func (c Command) Values(values ...Value) Command {
	c.Rows = append(c.Rows[:len(c.Rows):len(c.Rows)], append([]Value(nil), values...))
	return c
}

// IndexName sets the name of the index being created.
func (c Command) IndexName(name string) Command {
	c.Index.Name = name
	return c
}

// IndexColumns sets the columns covered by the index being created.
func (c Command) IndexColumns(columns ...string) Command {
	c.Index.Columns = append(c.Index.Columns[:len(c.Index.Columns):len(c.Index.Columns)], columns...)
	return c
}

// Unique marks the index being created as unique.
func (c Command) Unique() Command {
	c.Index.Unique = true
	return c
}
