package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
)

// QueryParams narrows and orders the rows returned by DataReader.Query.
type QueryParams struct {
	// Where is a WHERE clause without the keyword, e.g. "RunID = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy is an ORDER BY clause without the keywords, e.g. "Tick DESC".
	OrderBy string

	// Limit caps the number of rows returned. Zero means no limit.
	Limit int

	// Offset skips rows. It is only used together with Limit.
	Offset int
}

// DataReader reads back what a DataRecorder stored.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. A table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the tables the database holds, sorted, whether they
	// are mapped or not.
	ListTables(ctx context.Context) ([]string, error)

	// Query returns the matching rows as pointers to the mapped struct, and
	// the number of rows that match without Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close releases the reader.
	Close() error
}

type sqliteReader struct {
	db     *sql.DB
	ownsDB bool
	types  map[string]reflect.Type
}

// NewReader opens the SQLite file at dbFilename for reading.
func NewReader(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbFilename, err)
	}

	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbFilename, err)
	}

	r := newSQLiteReader(db)
	r.ownsDB = true

	return r, nil
}

// NewReaderWithDB creates a reader on an open database. Close leaves the
// database open.
func NewReaderWithDB(db *sql.DB) DataReader {
	return newSQLiteReader(db)
}

func newSQLiteReader(db *sql.DB) *sqliteReader {
	return &sqliteReader{
		db:    db,
		types: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if !tableNamePattern.MatchString(tableName) {
		panic(fmt.Sprintf("invalid table name %q", tableName))
	}

	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.types[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.types[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	filter := ""
	if params.Where != "" {
		filter = " WHERE " + params.Where
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+filter, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	query := "SELECT * FROM " + tableName + filter

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", params.Limit, params.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, structType)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", tableName, err)
	}

	return results, total, nil
}

// decodeRows fills one struct per row, matching columns to fields by name.
// Columns without a field are skipped.
func decodeRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			field := entry.Elem().FieldByName(column)
			if !field.IsValid() {
				targets[i] = new(any)
				continue
			}

			targets[i] = field.Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	if !r.ownsDB {
		return nil
	}

	return r.db.Close()
}
