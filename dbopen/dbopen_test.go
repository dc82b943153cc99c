package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory_AppliesSchema(t *testing.T) {
	// WHAT: WithSchema executes the given SQL after pragmas.
	// WHY: callers rely on Open returning a ready-to-use database.
	db := OpenMemory(t, WithSchema(`CREATE TABLE demo (id TEXT PRIMARY KEY)`))

	if _, err := db.Exec(`INSERT INTO demo (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestOpenMemory_ForeignKeysOn(t *testing.T) {
	// WHAT: foreign_keys pragma is ON by default.
	// WHY: recipe stats rows must cascade with their parent recipe.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY"), true},
		{errors.New("database is locked (5)"), true},
		{errors.New("database table is locked"), true},
		{errors.New("no such table"), false},
	}
	for _, c := range cases {
		if got := IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestRunTx_CommitsOnSuccess(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE demo (id TEXT PRIMARY KEY)`))

	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO demo (id) VALUES ('x')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM demo`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestRunTx_RollsBackOnError(t *testing.T) {
	// WHAT: fn returning an error rolls the transaction back.
	// WHY: partial recipe writes must never become visible.
	db := OpenMemory(t, WithSchema(`CREATE TABLE demo (id TEXT PRIMARY KEY)`))

	wantErr := errors.New("boom")
	err := RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO demo (id) VALUES ('x')`); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunTx error = %v, want %v", err, wantErr)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM demo`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows = %d, want 0 after rollback", n)
	}
}
