package access

import "testing"

func TestGateEmptyListAllowsEveryone(t *testing.T) {
	t.Parallel()
	g := New(nil)
	if !g.Open() {
		t.Fatal("empty gate should be open")
	}
	if !g.Allowed(12345) {
		t.Fatal("open gate should allow any real id")
	}
	if g.Allowed(0) {
		t.Fatal("id 0 is never allowed")
	}
}

func TestGateAllowlist(t *testing.T) {
	t.Parallel()
	g := New([]int64{1, 2})
	if g.Open() {
		t.Fatal("gate with ids should not be open")
	}
	if !g.Allowed(1) || !g.Allowed(2) {
		t.Fatal("listed ids should pass")
	}
	if g.Allowed(3) {
		t.Fatal("unlisted id should be denied")
	}
}

func TestGateApplySwapsList(t *testing.T) {
	t.Parallel()
	g := New([]int64{1})
	g.Apply([]int64{7})
	if g.Allowed(1) {
		t.Fatal("old id should be gone after Apply")
	}
	if !g.Allowed(7) {
		t.Fatal("new id should pass after Apply")
	}

	// Emptying the list reopens the gate.
	g.Apply(nil)
	if !g.Allowed(1) {
		t.Fatal("gate should be open again")
	}
}
