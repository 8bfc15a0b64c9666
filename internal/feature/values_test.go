package feature

import "testing"

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"  ", 0},
		{"3", 3},
		{"2,5", 2.5},
		{" 4.25 ", 4.25},
		{"three", 0},
		{"NaN", 0},
		{float64(7), 7},
		{int64(2), 2},
		{true, 0},
	}

	for _, tt := range tests {
		if got := ToFloat(tt.in); got != tt.want {
			t.Errorf("ToFloat(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCollectionFloatDefaults(t *testing.T) {
	c := NewCollection("b", []*Feature{
		{Attributes: Attributes{"building:levels": "3"}},
		{Attributes: Attributes{"other": "x"}},
	})

	if got := c.Float(c.Features[0], "building:levels", 1); got != 3 {
		t.Errorf("Expected 3 levels, got %v", got)
	}
	// column registered but missing on this feature: coerced to 0
	if got := c.Float(c.Features[1], "building:levels", 1); got != 0 {
		t.Errorf("Expected 0 for null value, got %v", got)
	}
	// column absent from the schema: default
	if got := c.Float(c.Features[0], "mean", 0.5); got != 0.5 {
		t.Errorf("Expected fallback for unknown column, got %v", got)
	}

	if got := c.Text(c.Features[1], "building:levels", "house"); got != "house" {
		t.Errorf("Expected fallback for nil text, got %q", got)
	}
}

func TestFormatHeight(t *testing.T) {
	if got := FormatHeight(nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
	v := 9.7
	if got := FormatHeight(&v); got != "9.70" {
		t.Errorf("Expected 9.70, got %v", got)
	}
	z := 0.0
	if got := FormatHeight(&z); got != "0.00" {
		t.Errorf("Expected 0.00, got %v", got)
	}
}

func TestBuildingChildren(t *testing.T) {
	b := &Building{Feature: &Feature{ID: "1"}}
	if b.HasInstallation() || b.ChildIDs() != nil || b.ChildMethods() != nil {
		t.Fatal("Expected empty building to have no children")
	}

	b.Children = []Child{{"s1", "photovoltaic"}, {"s2", ""}}
	if !b.HasInstallation() {
		t.Error("Expected HasInstallation")
	}
	ids, methods := b.ChildIDs(), b.ChildMethods()
	if len(ids) != len(methods) || ids[1] != "s2" || methods[0] != "photovoltaic" {
		t.Errorf("Unexpected parallel arrays: %v %v", ids, methods)
	}
}
