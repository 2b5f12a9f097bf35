package terrain

import "testing"

func TestPaletteFromAndGet(t *testing.T) {
	p, err := NewPaletteFrom([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewPaletteFrom: %v", err)
	}
	for i, want := range []byte{1, 2, 3, 4} {
		if got := p.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestPaletteIndexOf(t *testing.T) {
	p, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	if got := p.IndexOf(3); got != 2 {
		t.Errorf("IndexOf(3) = %d, want 2", got)
	}
	if got := p.IndexOf(9); got != -1 {
		t.Errorf("IndexOf(9) = %d, want -1", got)
	}
}

func TestPaletteFromRejectsWrongLength(t *testing.T) {
	if _, err := NewPaletteFrom([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for 3-element slice")
	}
}

func TestPaletteFromRejectsOutOfRangeID(t *testing.T) {
	if _, err := NewPaletteFrom([]byte{1, 2, 16, 4}); err == nil {
		t.Error("expected error for material id 16")
	}
}

func TestPaletteSetIdempotent(t *testing.T) {
	p, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	if err := p.Set(1, 9); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := p.Get(1); got != 9 {
		t.Errorf("Get(1) after Set = %d, want 9", got)
	}
	// Other nibbles are unchanged.
	for i, want := range []byte{1, 9, 3, 4} {
		if got := p.Get(i); got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestPaletteSetOutOfRange(t *testing.T) {
	var p MaterialPalette
	if err := p.Set(4, 1); err == nil {
		t.Error("expected error for index 4")
	}
	if err := p.Set(0, 16); err == nil {
		t.Error("expected error for material id 16")
	}
}

func TestPaletteEqual(t *testing.T) {
	a, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	b, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	c, _ := NewPaletteFrom([]byte{1, 2, 3, 5})
	if !a.Equal(b) {
		t.Error("expected equal palettes to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing palettes to compare unequal")
	}
}
