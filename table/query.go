package table

import (
	"fmt"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/column"
)

// Operator is a filter comparison.
type Operator = column.Operator

// Comparison operators.
const (
	Noop           = column.Noop
	Equals         = column.Equals
	NotEquals      = column.NotEquals
	LessThan       = column.LessThan
	GreaterThan    = column.GreaterThan
	LessOrEqual    = column.LessOrEqual
	GreaterOrEqual = column.GreaterOrEqual
)

// Where is one filter clause. Column holds the reference as it appears in
// SQL, qualified when the filter belongs to a joined view.
type Where struct {
	Column   string
	Operator Operator
	Value    any

	owner *Table
}

// Query is SQL text plus its positional arguments.
type Query struct {
	SQL  string
	Args []any
}

// buildWhere renders the filters as an AND chain.
func buildWhere(filters []Where) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var args []any
	for i, f := range filters {
		if i == 0 {
			sb.WriteString(" Where ")
		} else {
			sb.WriteString(" And ")
		}
		sb.WriteString(buildCondition(f, &args))
	}
	return sb.String(), args
}

// buildCondition renders one filter. Equality against nil becomes an IS
// test because "= NULL" never matches.
func buildCondition(w Where, args *[]any) string {
	if w.Value == nil {
		switch w.Operator {
		case Equals:
			return w.Column + " Is Null"
		case NotEquals:
			return w.Column + " Is Not Null"
		}
	}
	*args = append(*args, w.Value)
	return fmt.Sprintf("%s %s ?", w.Column, w.Operator)
}

func buildSelect(cols []string, from string, filters []Where) Query {
	where, args := buildWhere(filters)
	return Query{
		SQL:  "Select " + strings.Join(cols, ", ") + " From " + from + where,
		Args: args,
	}
}

func buildInsert(table string, cols []string, values []any) Query {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return Query{
		SQL:  "Insert into " + table + "(" + strings.Join(cols, ", ") + ") values (" + placeholders + ")",
		Args: values,
	}
}

func buildUpdate(table string, cols []string, values []any, filters []Where) Query {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	where, whereArgs := buildWhere(filters)

	args := make([]any, 0, len(values)+len(whereArgs))
	args = append(args, values...)
	args = append(args, whereArgs...)
	return Query{
		SQL:  "Update " + table + " set " + strings.Join(sets, ", ") + where,
		Args: args,
	}
}

func buildDelete(table string, filters []Where) Query {
	where, args := buildWhere(filters)
	return Query{
		SQL:  "Delete from " + table + where,
		Args: args,
	}
}
