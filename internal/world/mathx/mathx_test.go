package mathx

import "testing"

func TestFloorDivMod_Negatives(t *testing.T) {
	cases := []struct {
		a, b, q, m int
	}{
		{0, 32, 0, 0},
		{31, 32, 0, 31},
		{32, 32, 1, 0},
		{-1, 32, -1, 31},
		{-32, 32, -1, 0},
		{-33, 32, -2, 31},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d) = %d, want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestHash2_DeterministicAndSpread(t *testing.T) {
	if Hash2(42, 10, -7) != Hash2(42, 10, -7) {
		t.Fatalf("Hash2 not deterministic")
	}
	if Hash2(42, 10, -7) == Hash2(42, -7, 10) {
		t.Fatalf("Hash2 symmetric in x/y; coordinates must not be interchangeable")
	}
	if Hash2(1, 0, 0) == Hash2(2, 0, 0) {
		t.Fatalf("Hash2 ignores seed")
	}
}
