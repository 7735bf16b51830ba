package db_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/trailblazers/internal/db"
)

var errBoom = errors.New("boom")

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, "file:new_close?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}
	if err := d.Ping(ctx); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow_WithTx(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, "file:exec_query?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "foo")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	lastID, err := res.LastInsertId()
	if err != nil || lastID == 0 {
		t.Fatalf("LastInsertId = %d, %v", lastID, err)
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, lastID).Scan(&name); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}

	// a failing callback rolls back
	err = d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('bar')`); err != nil {
			return err
		}
		return errBoom
	})
	if err == nil {
		t.Fatalf("expected WithTx error")
	}
	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM items`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to keep 1 row, got %d", count)
	}
}

func TestNew_BadPath(t *testing.T) {
	ctx := context.Background()
	_, err := dbpkg.New(ctx, filepath.Join(t.TempDir(), "missing", "x.db"), nil)
	if err == nil {
		t.Fatalf("expected error for missing directory, got nil")
	}
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "mt.db")

	d, err := dbpkg.New(ctx, path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Exec(ctx, `CREATE TABLE items (name TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Exec(ctx, `INSERT INTO items VALUES ('kept')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	backup := filepath.Join(dir, "mt.db.bak")
	if err := d.Backup(ctx, backup); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if _, err := d.Exec(ctx, `DELETE FROM items`); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := dbpkg.Restore(backup, path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(path + ".restore"); !os.IsNotExist(err) {
		t.Fatalf("temporary restore file left behind: %v", err)
	}

	d, err = dbpkg.New(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items`).Scan(&name); err != nil {
		t.Fatalf("restored row: %v", err)
	}
	if name != "kept" {
		t.Fatalf("expected restored row 'kept', got %q", name)
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	dir := t.TempDir()
	if err := dbpkg.Restore(filepath.Join(dir, "nope.bak"), filepath.Join(dir, "mt.db")); err == nil {
		t.Fatalf("expected error for missing backup")
	}
}
