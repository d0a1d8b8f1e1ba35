package types

import "testing"

func TestNextSortOrder(t *testing.T) {
	if got := NextSortOrder(nil); got != 0 {
		t.Errorf("empty partition = %v, want 0", got)
	}
	if got := NextSortOrder([]float64{0, 3.5, 1}); got != 4.5 {
		t.Errorf("NextSortOrder = %v, want 4.5", got)
	}
	if got := NextSortOrder([]float64{-2, -5}); got != -1 {
		t.Errorf("NextSortOrder = %v, want -1", got)
	}
}

func TestSortOrderBetween(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name       string
		prev, next *float64
		want       float64
		ok         bool
	}{
		{"empty", nil, nil, 0, true},
		{"top", nil, f(2), 1, true},
		{"bottom", f(2), nil, 3, true},
		{"midpoint", f(1), f(2), 1.5, true},
		{"collapsed", f(1), f(1 + MinSortGap/2), 0, false},
		{"equal", f(1), f(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SortOrderBetween(tt.prev, tt.next)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("SortOrderBetween = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMidpointEventuallyCollapses(t *testing.T) {
	prev, next := 0.0, 1.0
	for i := 0; i < 64; i++ {
		mid, ok := SortOrderBetween(&prev, &next)
		if !ok {
			if i < 10 {
				t.Fatalf("collapsed too early after %d insertions", i)
			}
			return
		}
		next = mid
	}
	t.Fatal("gap never collapsed")
}

func TestRenumber(t *testing.T) {
	got := Renumber(3)
	for i, v := range got {
		if v != float64(i) {
			t.Errorf("Renumber(3)[%d] = %v", i, v)
		}
	}
	if len(Renumber(0)) != 0 {
		t.Error("Renumber(0) should be empty")
	}
}
