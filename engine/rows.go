package engine

// Row is a single result row, keyed by column name.
type Row map[string]any

// Result reports the outcome of a statement that does not return rows.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Shape pairs an ordered column tuple with positional value tuples, producing
// one name-keyed mapping per tuple. Query results and single-step results both
// pass through here so the two paths cannot drift apart.
func Shape(columns []string, tuples [][]any) []Row {
	rows := make([]Row, 0, len(tuples))
	for _, tuple := range tuples {
		rows = append(rows, ShapeOne(columns, tuple))
	}
	return rows
}

// ShapeOne shapes a single bare value tuple as one row.
func ShapeOne(columns []string, tuple []any) Row {
	row := make(Row, len(columns))
	for i, column := range columns {
		if i < len(tuple) {
			row[column] = tuple[i]
		}
	}
	return row
}
