package terrain

import "testing"

func TestScalarSettingsAggregateAndDivide(t *testing.T) {
	a := ScalarSettings(10)
	b := ScalarSettings(20)
	sum := a.AggregateAdd(b)
	if sum != ScalarSettings(30) {
		t.Errorf("AggregateAdd = %v, want 30", sum)
	}
	avg := sum.DivideBy(3)
	if avg != ScalarSettings(10) {
		t.Errorf("DivideBy(3) = %v, want 10", avg)
	}
}

func TestBiomeRegistrySetAndByID(t *testing.T) {
	reg := NewBiomeRegistry()
	palette, _ := NewPaletteFrom([]byte{0, 1, 2, 3})
	if err := reg.Set(3, Biome{Palette: palette, Settings: ScalarSettings(5)}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := reg.ByID(3)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if !got.Palette.Equal(palette) {
		t.Errorf("palette mismatch")
	}
}

func TestBiomeRegistryOutOfRange(t *testing.T) {
	reg := NewBiomeRegistry()
	if err := reg.Set(8, Biome{}); err == nil {
		t.Error("expected error for biome id 8")
	}
	if _, err := reg.ByID(8); err == nil {
		t.Error("expected error for biome id 8")
	}
}

func TestBiomeRegistryMissing(t *testing.T) {
	reg := NewBiomeRegistry()
	if _, err := reg.ByID(4); err == nil {
		t.Error("expected error for unregistered biome id 4")
	}
}
