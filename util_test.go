package tablekv

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func setup(t testing.TB) *DB {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Open(dir, testSet, Options{IsTesting: true})
	ensure(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func setupMem(t testing.TB) *DB {
	t.Helper()
	db, err := Open("", testSet, Options{IsTesting: true, InMemory: true})
	ensure(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func ensure(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("** %v", err)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("** %v", err))
	}
	return v
}

func deepEqual[T any](t testing.TB, a, e T) {
	t.Helper()
	if !reflect.DeepEqual(a, e) {
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	t.Helper()
	if a != nil {
		t.Errorf("** got %v, wanted nil", a)
	}
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	ensure(t, os.WriteFile(path, []byte(content), 0o644))
}
