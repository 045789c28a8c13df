package action

import (
	"testing"

	"github.com/brensch/chainplan/geom"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		a     *Action
		cat   Category
		final bool
		dur   int
	}{
		{"hold", NewHold(7, geom.V(1, 2), 1), Hold, false, 1},
		{"dribble", NewDribble(7, geom.V(5, 0), 0.8, 1, 1, 3, "short"), Dribble, false, 5},
		{"pass", NewPass(7, 9, geom.V(10, 0), 2.5, 6, 1, false, "direct"), Pass, false, 6},
		{"shoot", NewShoot(7, geom.V(52.5, 0), 3, 10, 1, "shoot"), Shoot, true, 10},
		{"clear", NewClear(7, geom.V(20, 30), 2.7, 12, 2), Clear, false, 12},
		{"move", NewMove(7, geom.V(0, 0), 4), Move, false, 4},
		{"noop", NewNoAction(7, 1), NoAction, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Category != tt.cat || tt.a.Final != tt.final || tt.a.Duration != tt.dur {
				t.Errorf("got %v final=%v", tt.a, tt.a.Final)
			}
			if tt.a.Actor != 7 {
				t.Errorf("actor = %d", tt.a.Actor)
			}
		})
	}
}

func TestCategoryText(t *testing.T) {
	for c := Hold; c <= NoAction; c++ {
		b, _ := c.MarshalText()
		var got Category
		if err := got.UnmarshalText(b); err != nil || got != c {
			t.Errorf("%v: got %v err %v", c, got, err)
		}
	}
	var c Category
	if err := c.UnmarshalText([]byte("volley")); err == nil {
		t.Errorf("expected error")
	}
}

func TestSortByDistanceStable(t *testing.T) {
	as := []*Action{
		NewMove(1, geom.V(10, 0), 1),
		NewMove(2, geom.V(0, 5), 1),
		NewMove(3, geom.V(-5, 0), 1),
		NewMove(4, geom.V(1, 0), 1),
	}
	SortByDistance(as, geom.V(0, 0))
	want := []int{4, 2, 3, 1}
	for i, a := range as {
		if a.Actor != want[i] {
			t.Fatalf("order[%d] = %d, want %d", i, a.Actor, want[i])
		}
	}
}
