package mathx

import "testing"

func TestMod(t *testing.T) {
	if got := Mod(-1, 4); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := Mod(9, 4); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestMinAbs(t *testing.T) {
	if MinInt(2, 3) != 2 || MinInt(9, 8) != 8 || AbsInt(-4) != 4 || AbsInt(5) != 5 {
		t.Fatalf("min/abs mismatch")
	}
}
