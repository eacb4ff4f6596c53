package export

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/x4tools/projector/internal/resolve"
)

// WriteSQLite writes every kind into one SQLite database, one table per
// kind with the kind's tabular column set. The file is created or replaced
// table by table; all inserts for a table run in one transaction.
func WriteSQLite(path string, sets map[string][]*resolve.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	kinds := make([]string, 0, len(sets))
	for kind := range sets {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		if err := writeTable(db, kind, sets[kind]); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(db *sql.DB, kind string, records []*resolve.Record) error {
	cols := columns(kind, records)

	quoted := make([]string, 0, len(cols)+1)
	quoted = append(quoted, `"id" TEXT PRIMARY KEY`)
	for _, col := range cols {
		quoted = append(quoted, `"`+col+`"`)
	}

	if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, kind)); err != nil {
		return fmt.Errorf("drop table %s: %w", kind, err)
	}
	createStmt := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, kind, strings.Join(quoted, ", "))
	if _, err := db.Exec(createStmt); err != nil {
		return fmt.Errorf("create table %s: %w", kind, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	insertStmt := fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, kind, placeholders)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert into %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", kind, err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, 0, len(cols)+1)
	for _, rec := range records {
		args = args[:0]
		args = append(args, rec.ID)
		for _, col := range cols {
			args = append(args, sqliteValue(rec.Attr(col)))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert %s into %s: %w", rec.ID, kind, err)
		}
	}
	return tx.Commit()
}

// sqliteValue maps attribute values onto driver-supported types; compound
// values fall back to their string form.
func sqliteValue(v any) any {
	switch v.(type) {
	case nil, string, int, float64, bool:
		return v
	default:
		return fmt.Sprint(v)
	}
}
