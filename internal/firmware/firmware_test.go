package firmware

import "testing"

func TestNoOp_IsNeeded(t *testing.T) {
	if (NoOp{}).IsNeeded() {
		t.Errorf("expected NoOp.IsNeeded() to be false")
	}
}

func TestNoOp_LoadCompletesImmediately(t *testing.T) {
	called := false
	var gotErr error
	(NoOp{}).Load(func(err error) {
		called = true
		gotErr = err
	})
	if !called {
		t.Fatal("expected done callback to be invoked synchronously")
	}
	if gotErr != nil {
		t.Errorf("expected nil error, got %v", gotErr)
	}
}
