package codec

import (
	"fmt"
	"reflect"
	"testing"
)

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

func expectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("** %s did not panic", what)
		}
	}()
	f()
}
