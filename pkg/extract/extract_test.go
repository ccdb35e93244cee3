package extract

import (
	"math"
	"testing"
)

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Worked 6 hours on the deck", 6},
		{"about 2.5 hrs of prep", 2.5},
		{"3 hours in the morning and 4 hours after lunch", 7},
		{"spent half a day sanding", 4},
		{"a full day on site", 8},
		{"no time mentioned", 0},
	}
	for _, tt := range tests {
		got := Parse(tt.in).Hours
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Parse(%q).Hours = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCosts(t *testing.T) {
	f := Parse("Picked up screws for $45.50 and paid the sparky 300 dollars, plus $1,200 for the slab")
	want := []float64{45.50, 300, 1200}
	if len(f.Costs) != len(want) {
		t.Fatalf("Costs = %v, want %v", f.Costs, want)
	}
	for i := range want {
		if math.Abs(f.Costs[i]-want[i]) > 1e-9 {
			t.Errorf("Costs[%d] = %v, want %v", i, f.Costs[i], want[i])
		}
	}
}

func TestParseMaterials(t *testing.T) {
	f := Parse("Used treated pine for the frame. Installed the new vanity.")
	if len(f.Materials) != 2 {
		t.Fatalf("Materials = %v, want 2 items", f.Materials)
	}
	if f.Materials[0] != "treated pine" {
		t.Errorf("Materials[0] = %q", f.Materials[0])
	}
	if f.Materials[1] != "the new vanity" {
		t.Errorf("Materials[1] = %q", f.Materials[1])
	}
}

func TestParseMaterialsStopWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Used treated pine for the frame", "treated pine"},
		{"Laid the slab and knocked off early", "the slab"},
		{"Fitted the flashing on the north wall", "the flashing"},
		{"Bought villaboard", "villaboard"},
	}
	for _, tt := range tests {
		f := Parse(tt.in)
		if len(f.Materials) != 1 || f.Materials[0] != tt.want {
			t.Errorf("Parse(%q).Materials = %v, want [%q]", tt.in, f.Materials, tt.want)
		}
	}
}

func TestParseNextActions(t *testing.T) {
	f := Parse("Need to order more tiles. Tomorrow I'll grab the trim.")
	if len(f.NextActions) != 2 {
		t.Fatalf("NextActions = %v, want 2 items", f.NextActions)
	}
	if f.NextActions[0] != "order more tiles" {
		t.Errorf("NextActions[0] = %q", f.NextActions[0])
	}
	if f.NextActions[1] != "grab the trim" {
		t.Errorf("NextActions[1] = %q", f.NextActions[1])
	}
}

func TestEmptyAndMap(t *testing.T) {
	f := Parse("nothing of interest here")
	if !f.Empty() {
		t.Fatalf("expected empty fields, got %+v", f)
	}
	if m := f.Map(); len(m) != 0 {
		t.Fatalf("Map() = %v, want empty", m)
	}

	f = Parse("Worked 6 hours, used gyprock, $200 on fixings, need to book the plumber.")
	m := f.Map()
	for _, key := range []string{"hours", "costs", "materials", "next_actions"} {
		if _, ok := m[key]; !ok {
			t.Errorf("Map() missing %q: %v", key, m)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	const in = "Worked 3 hours, used villaboard, need to order grout."
	first := Parse(in)
	for i := 0; i < 20; i++ {
		again := Parse(in)
		if again.Hours != first.Hours || len(again.Materials) != len(first.Materials) ||
			len(again.NextActions) != len(first.NextActions) {
			t.Fatalf("iteration %d differs: %+v vs %+v", i, again, first)
		}
	}
}
