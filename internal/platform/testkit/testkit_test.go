package testkit

import "testing"

var clock = func() string { return "real" }

func TestMustPanic(t *testing.T) {
	MustPanic(t, func() { panic("ledger gateway is required") })
}

func TestMustContain(t *testing.T) {
	MustContain(t, `{"code":"LedgerRejected","op":"Registering"}`, `"op":"Registering"`)
}

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &clock, func() string { return "fake" })
		if clock() != "fake" {
			t.Fatalf("swap did not apply")
		}
	})
	if clock() != "real" {
		t.Fatalf("swap was not restored")
	}
}
