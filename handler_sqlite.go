// handler_sqlite.go: SQLite table handler backed by the pure-Go driver
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultSQLiteTable = "records"

// sqliteHandler loads and saves flat record sets from a SQLite database
// file. The handler arg "table" selects the table (default "records").
// Save replaces the table wholesale: columns are the sorted union of the
// record keys, all typed TEXT, which round-trips through the CSV-style
// record shape the rest of the engine uses.
type sqliteHandler struct{}

func (h *sqliteHandler) Directory() bool { return false }

func sqliteTable(args map[string]any) string {
	if args != nil {
		if t, ok := args["table"].(string); ok && t != "" {
			return t
		}
	}
	return defaultSQLiteTable
}

// quoteIdent quotes an identifier for SQLite, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (h *sqliteHandler) Load(path string, args map[string]any) (any, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	table := sqliteTable(args)
	rows, err := db.Query("SELECT * FROM " + quoteIdent(table)) // #nosec G202 -- identifier quoted above
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		record := make(map[string]string, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				record[col] = values[i].String
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if records == nil {
		records = []map[string]string{}
	}
	return records, nil
}

func (h *sqliteHandler) Save(value any, path string, args map[string]any) error {
	records, err := toStringRecords(value)
	if err != nil {
		return fmt.Errorf("sqlite handler: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	table := quoteIdent(sqliteTable(args))
	cols := recordColumns(records)
	if len(cols) == 0 {
		// Nothing to persist beyond an empty table.
		_, err = db.Exec("DROP TABLE IF EXISTS " + table)
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
		return err
	}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col) + " TEXT"
	}
	if _, err := tx.Exec("CREATE TABLE " + table + " (" + strings.Join(quoted, ", ") + ")"); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = quoteIdent(col)
	}
	stmt, err := tx.Prepare("INSERT INTO " + table + " (" + strings.Join(names, ", ") + ") VALUES (" + placeholders + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, record := range records {
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = record[col]
		}
		if _, err := stmt.Exec(row...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
