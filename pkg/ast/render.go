package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCommand is returned whenever a command cannot be rendered to SQL.
// Builder methods never fail, malformed commands surface here.
var ErrInvalidCommand = errors.New("invalid command")

// Render produces the deterministic SQL representation of the given command.
// Rendering is total over well-formed commands, identical commands always
// produce identical SQL.
func Render(c Command) (string, error) {
	switch c.Kind {
	case KindGet:
		return renderSelect(c)
	case KindSet:
		return renderUpdate(c)
	case KindAdd:
		return renderInsert(c)
	case KindDel:
		return renderDelete(c)
	case KindMake:
		return renderCreateTable(c)
	case KindDrop:
		if c.Table == "" {
			return "", fmt.Errorf("%w: drop requires a table", ErrInvalidCommand)
		}
		return "DROP TABLE IF EXISTS " + c.Table, nil
	case KindAlter:
		return renderAlter(c)
	case KindAlterDrop:
		return renderAlterDrop(c)
	case KindMod:
		return renderModify(c)
	case KindIndex:
		return renderCreateIndex(c)
	case KindDropIndex:
		if c.Index.Name == "" {
			return "", fmt.Errorf("%w: drop_index requires an index name", ErrInvalidCommand)
		}
		return "DROP INDEX IF EXISTS " + c.Index.Name, nil
	case KindTruncate:
		if c.Table == "" {
			return "", fmt.Errorf("%w: truncate requires a table", ErrInvalidCommand)
		}
		return "TRUNCATE TABLE " + c.Table, nil
	case KindBegin:
		return "BEGIN", nil
	case KindCommit:
		return "COMMIT", nil
	case KindRollback:
		return "ROLLBACK", nil
	case KindSavepoint:
		if c.Savepoint == "" {
			return "", fmt.Errorf("%w: savepoint requires a name", ErrInvalidCommand)
		}
		return "SAVEPOINT " + c.Savepoint, nil
	case KindRelease:
		if c.Savepoint == "" {
			return "", fmt.Errorf("%w: release requires a savepoint name", ErrInvalidCommand)
		}
		return "RELEASE SAVEPOINT " + c.Savepoint, nil
	case KindRollbackTo:
		if c.Savepoint == "" {
			return "", fmt.Errorf("%w: rollback_to requires a savepoint name", ErrInvalidCommand)
		}
		return "ROLLBACK TO SAVEPOINT " + c.Savepoint, nil
	case KindListen:
		if c.Channel == "" {
			return "", fmt.Errorf("%w: listen requires a channel", ErrInvalidCommand)
		}
		return "LISTEN " + c.Channel, nil
	case KindNotify:
		if c.Channel == "" {
			return "", fmt.Errorf("%w: notify requires a channel", ErrInvalidCommand)
		}
		if c.Payload == "" {
			return "NOTIFY " + c.Channel, nil
		}
		return "NOTIFY " + c.Channel + ", " + quoteString(c.Payload), nil
	case KindUnlisten:
		if c.Channel == "" {
			return "UNLISTEN *", nil
		}
		return "UNLISTEN " + c.Channel, nil
	case KindRaw:
		if c.RawSQL == "" {
			return "", fmt.Errorf("%w: raw requires a SQL string", ErrInvalidCommand)
		}
		return c.RawSQL, nil
	default:
		return "", fmt.Errorf("%w: unknown command kind %d", ErrInvalidCommand, c.Kind)
	}
}

func renderSelect(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: get requires a table", ErrInvalidCommand)
	}
	if c.HasLimit && c.Limit < 0 {
		return "", fmt.Errorf("%w: negative limit %d", ErrInvalidCommand, c.Limit)
	}
	if c.HasOffset && c.Offset < 0 {
		return "", fmt.Errorf("%w: negative offset %d", ErrInvalidCommand, c.Offset)
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if c.Distinct {
		sql.WriteString("DISTINCT ")
	}

	if len(c.Columns) == 0 {
		sql.WriteString("*")
	} else {
		if err := renderExprs(&sql, c.Columns); err != nil {
			return "", err
		}
	}

	sql.WriteString(" FROM ")
	sql.WriteString(c.Table)
	if c.TableAlias != "" {
		sql.WriteString(" AS ")
		sql.WriteString(c.TableAlias)
	}

	for _, join := range c.Joins {
		sql.WriteByte(' ')
		sql.WriteString(join.Kind.SQL())
		sql.WriteByte(' ')
		sql.WriteString(join.Table)
		if join.Alias != "" {
			sql.WriteString(" AS ")
			sql.WriteString(join.Alias)
		}
		if join.Kind != CrossJoin {
			sql.WriteString(" ON ")
			sql.WriteString(join.OnLeft)
			sql.WriteString(" = ")
			sql.WriteString(join.OnRight)
		}
	}

	if err := renderWheres(&sql, " WHERE ", c.Wheres); err != nil {
		return "", err
	}

	if len(c.GroupBy) > 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(c.GroupBy, ", "))
	}

	if err := renderWheres(&sql, " HAVING ", c.Having); err != nil {
		return "", err
	}

	if len(c.OrderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		for index, order := range c.OrderBy {
			if index > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString(order.Column)
			sql.WriteByte(' ')
			sql.WriteString(order.Direction.SQL())
		}
	}

	if c.HasLimit {
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.FormatInt(c.Limit, 10))
	}

	if c.HasOffset {
		sql.WriteString(" OFFSET ")
		sql.WriteString(strconv.FormatInt(c.Offset, 10))
	}

	if c.ForUpdate {
		sql.WriteString(" FOR UPDATE")
	}

	return sql.String(), nil
}

func renderUpdate(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: set requires a table", ErrInvalidCommand)
	}
	if len(c.Assign) == 0 {
		return "", fmt.Errorf("%w: set requires at least one assignment", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("UPDATE ")
	sql.WriteString(c.Table)
	sql.WriteString(" SET ")
	for index, assign := range c.Assign {
		if index > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString(assign.Column)
		sql.WriteString(" = ")
		sql.WriteString(renderValue(assign.Value))
	}

	if err := renderWheres(&sql, " WHERE ", c.Wheres); err != nil {
		return "", err
	}

	if err := renderReturning(&sql, c.Returning); err != nil {
		return "", err
	}

	return sql.String(), nil
}

func renderInsert(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: add requires a table", ErrInvalidCommand)
	}
	if len(c.Rows) == 0 {
		return "", fmt.Errorf("%w: add requires at least one row of values", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(c.Table)

	if len(c.Columns) > 0 {
		sql.WriteString(" (")
		for index, column := range c.Columns {
			if index > 0 {
				sql.WriteString(", ")
			}
			if column.Kind != ExprNamed {
				return "", fmt.Errorf("%w: insert columns must be plain column names", ErrInvalidCommand)
			}
			sql.WriteString(column.Name)
		}
		sql.WriteString(")")
	}

	sql.WriteString(" VALUES ")
	width := len(c.Rows[0])
	for index, row := range c.Rows {
		if len(row) != width {
			return "", fmt.Errorf("%w: insert rows must be of equal width", ErrInvalidCommand)
		}
		if index > 0 {
			sql.WriteString(", ")
		}
		sql.WriteString("(")
		for vi, value := range row {
			if vi > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString(renderValue(value))
		}
		sql.WriteString(")")
	}

	if err := renderReturning(&sql, c.Returning); err != nil {
		return "", err
	}

	return sql.String(), nil
}

func renderDelete(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: del requires a table", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("DELETE FROM ")
	sql.WriteString(c.Table)

	if err := renderWheres(&sql, " WHERE ", c.Wheres); err != nil {
		return "", err
	}

	if err := renderReturning(&sql, c.Returning); err != nil {
		return "", err
	}

	return sql.String(), nil
}

func renderCreateTable(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: make requires a table", ErrInvalidCommand)
	}
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("%w: make requires at least one column definition", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("CREATE TABLE IF NOT EXISTS ")
	sql.WriteString(c.Table)
	sql.WriteString(" (")
	for index, column := range c.Columns {
		if index > 0 {
			sql.WriteString(", ")
		}
		if column.Kind != ExprColumnDef {
			return "", fmt.Errorf("%w: make columns must be column definitions", ErrInvalidCommand)
		}
		renderColumnDef(&sql, column.Def)
	}
	sql.WriteString(")")

	return sql.String(), nil
}

func renderAlter(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: alter requires a table", ErrInvalidCommand)
	}
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("%w: alter requires at least one column definition", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("ALTER TABLE ")
	sql.WriteString(c.Table)
	for index, column := range c.Columns {
		if index > 0 {
			sql.WriteString(",")
		}
		if column.Kind != ExprColumnDef {
			return "", fmt.Errorf("%w: alter columns must be column definitions", ErrInvalidCommand)
		}
		sql.WriteString(" ADD COLUMN ")
		renderColumnDef(&sql, column.Def)
	}

	return sql.String(), nil
}

func renderAlterDrop(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: alter_drop requires a table", ErrInvalidCommand)
	}
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("%w: alter_drop requires at least one column", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("ALTER TABLE ")
	sql.WriteString(c.Table)
	for index, column := range c.Columns {
		if index > 0 {
			sql.WriteString(",")
		}
		if column.Kind != ExprNamed {
			return "", fmt.Errorf("%w: alter_drop columns must be plain column names", ErrInvalidCommand)
		}
		sql.WriteString(" DROP COLUMN ")
		sql.WriteString(column.Name)
	}

	return sql.String(), nil
}

func renderModify(c Command) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("%w: mod requires a table", ErrInvalidCommand)
	}
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("%w: mod requires at least one column modification", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("ALTER TABLE ")
	sql.WriteString(c.Table)
	for index, column := range c.Columns {
		if index > 0 {
			sql.WriteString(",")
		}
		if column.Kind != ExprColMod || column.Inner == nil {
			return "", fmt.Errorf("%w: mod columns must be column modifications", ErrInvalidCommand)
		}

		switch column.Mod {
		case ColModAdd:
			if column.Inner.Kind != ExprColumnDef {
				return "", fmt.Errorf("%w: mod add requires a column definition", ErrInvalidCommand)
			}
			sql.WriteString(" ADD COLUMN ")
			renderColumnDef(&sql, column.Inner.Def)
		case ColModDrop:
			if column.Inner.Kind != ExprNamed {
				return "", fmt.Errorf("%w: mod drop requires a plain column name", ErrInvalidCommand)
			}
			sql.WriteString(" DROP COLUMN ")
			sql.WriteString(column.Inner.Name)
		}
	}

	return sql.String(), nil
}

func renderCreateIndex(c Command) (string, error) {
	if c.Table == "" || c.Index.Name == "" || len(c.Index.Columns) == 0 {
		return "", fmt.Errorf("%w: index requires a table, name and columns", ErrInvalidCommand)
	}

	var sql strings.Builder
	sql.WriteString("CREATE ")
	if c.Index.Unique {
		sql.WriteString("UNIQUE ")
	}
	sql.WriteString("INDEX ")
	sql.WriteString(c.Index.Name)
	sql.WriteString(" ON ")
	sql.WriteString(c.Table)
	sql.WriteString(" (")
	sql.WriteString(strings.Join(c.Index.Columns, ", "))
	sql.WriteString(")")

	return sql.String(), nil
}

func renderReturning(sql *strings.Builder, returning []Expr) error {
	if len(returning) == 0 {
		return nil
	}

	sql.WriteString(" RETURNING ")
	return renderExprs(sql, returning)
}

func renderExprs(sql *strings.Builder, exprs []Expr) error {
	for index, expr := range exprs {
		if index > 0 {
			sql.WriteString(", ")
		}
		if err := renderExpr(sql, expr); err != nil {
			return err
		}
	}

	return nil
}

func renderExpr(sql *strings.Builder, e Expr) error {
	switch e.Kind {
	case ExprStar:
		sql.WriteString("*")
	case ExprNamed:
		sql.WriteString(e.Name)
	case ExprAliased:
		sql.WriteString(e.Name)
		sql.WriteString(" AS ")
		sql.WriteString(e.Alias)
		return nil
	case ExprLiteral:
		sql.WriteString(renderValue(e.Literal))
	case ExprAggregate:
		sql.WriteString(e.Func)
		sql.WriteString("(")
		if e.Distinct {
			sql.WriteString("DISTINCT ")
		}
		if e.Column == "" {
			sql.WriteString("*")
		} else {
			sql.WriteString(e.Column)
		}
		sql.WriteString(")")
	case ExprFuncCall, ExprSpecialFunc:
		sql.WriteString(e.Func)
		sql.WriteString("(")
		if err := renderExprs(sql, e.Args); err != nil {
			return err
		}
		sql.WriteString(")")
	case ExprCoalesce:
		sql.WriteString("COALESCE(")
		if err := renderExprs(sql, e.Args); err != nil {
			return err
		}
		sql.WriteString(")")
	case ExprCaseWhen:
		sql.WriteString("CASE")
		for _, branch := range e.Branches {
			sql.WriteString(" WHEN ")
			if err := renderCond(sql, branch.When); err != nil {
				return err
			}
			sql.WriteString(" THEN ")
			sql.WriteString(renderValue(branch.Then))
		}
		if e.Else != nil {
			sql.WriteString(" ELSE ")
			sql.WriteString(renderValue(*e.Else))
		}
		sql.WriteString(" END")
	case ExprColumnDef:
		renderColumnDef(sql, e.Def)
	case ExprWindow:
		sql.WriteString(e.Func)
		sql.WriteString("(")
		sql.WriteString(e.Column)
		sql.WriteString(") OVER (")
		if len(e.Partition) > 0 {
			sql.WriteString("PARTITION BY ")
			sql.WriteString(strings.Join(e.Partition, ", "))
		}
		if len(e.Order) > 0 {
			if len(e.Partition) > 0 {
				sql.WriteString(" ")
			}
			sql.WriteString("ORDER BY ")
			for index, order := range e.Order {
				if index > 0 {
					sql.WriteString(", ")
				}
				sql.WriteString(order.Column)
				sql.WriteByte(' ')
				sql.WriteString(order.Direction.SQL())
			}
		}
		sql.WriteString(")")
	case ExprColMod:
		return fmt.Errorf("%w: column modifications are only valid inside a mod command", ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: unknown expression kind %d", ErrInvalidCommand, e.Kind)
	}

	if e.Alias != "" {
		sql.WriteString(" AS ")
		sql.WriteString(e.Alias)
	}

	return nil
}

func renderColumnDef(sql *strings.Builder, def ColumnDef) {
	sql.WriteString(def.Name)
	sql.WriteByte(' ')
	sql.WriteString(def.DataType)

	if def.PrimaryKey {
		sql.WriteString(" PRIMARY KEY")
	}
	if def.Unique {
		sql.WriteString(" UNIQUE")
	}
	if def.NotNull {
		sql.WriteString(" NOT NULL")
	}
	if def.Default != nil {
		sql.WriteString(" DEFAULT ")
		sql.WriteString(renderValue(*def.Default))
	}
	if def.References != "" {
		sql.WriteString(" REFERENCES ")
		sql.WriteString(def.References)
	}
	for _, constraint := range def.Constraints {
		sql.WriteByte(' ')
		sql.WriteString(constraint)
	}
}

func renderWheres(sql *strings.Builder, keyword string, wheres []Where) error {
	if len(wheres) == 0 {
		return nil
	}

	sql.WriteString(keyword)
	for index, where := range wheres {
		if index > 0 {
			sql.WriteByte(' ')
			sql.WriteString(where.Connector.SQL())
			sql.WriteByte(' ')
		}
		if err := renderCond(sql, where.Cond); err != nil {
			return err
		}
	}

	return nil
}

func renderCond(sql *strings.Builder, cond Cond) error {
	if cond.Column == "" {
		return fmt.Errorf("%w: condition requires a column", ErrInvalidCommand)
	}

	sql.WriteString(cond.Column)

	switch cond.Op {
	case OpIsNull, OpIsNotNull:
		sql.WriteByte(' ')
		sql.WriteString(cond.Op.SQL())
	case OpIn, OpNotIn:
		sql.WriteByte(' ')
		sql.WriteString(cond.Op.SQL())
		sql.WriteString(" (")
		for index, value := range cond.Value.Values {
			if index > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString(renderValue(value))
		}
		sql.WriteString(")")
	case OpBetween, OpNotBetween:
		sql.WriteByte(' ')
		sql.WriteString(cond.Op.SQL())
		sql.WriteByte(' ')
		sql.WriteString(renderValue(cond.Value))
		sql.WriteString(" AND ")
		sql.WriteString(renderValue(cond.Upper))
	default:
		sql.WriteByte(' ')
		sql.WriteString(cond.Op.SQL())
		sql.WriteByte(' ')
		sql.WriteString(renderValue(cond.Value))
	}

	return nil
}

func renderValue(v Value) string {
	switch v.Kind {
	case ValueNull:
		return "NULL"
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueString:
		return quoteString(v.Str)
	case ValueColumn:
		return v.Str
	case ValueParam:
		return "$" + strconv.FormatUint(uint64(v.Index), 10)
	case ValueNamedParam:
		return ":" + v.Str
	case ValueArray:
		var sql strings.Builder
		sql.WriteString("ARRAY[")
		for index, value := range v.Values {
			if index > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString(renderValue(value))
		}
		sql.WriteString("]")
		return sql.String()
	default:
		return "NULL"
	}
}

// quoteString renders a single-quoted SQL string literal with embedded quotes
// doubled.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
