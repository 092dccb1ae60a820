package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDefaultItemByKind(t *testing.T) {
	cases := []struct {
		kind   ItemKind
		shape  ItemShape
		width  float64
		height float64
		seats  int
	}{
		{KindTable, ShapeCircle, 80, 80, 4},
		{KindRectTable, ShapeRect, 120, 80, 4},
		{KindOvalTable, ShapeOval, 140, 80, 6},
		{KindBooth, ShapeRect, 240, 80, 6},
		{KindSofa, ShapeRect, 160, 60, 0},
		{KindPlant, ShapeRect, 36, 36, 0},
		{KindDoor, ShapeRect, 80, 12, 0},
		{KindWindow, ShapeRect, 100, 12, 0},
		{KindGeneric, ShapeRect, 100, 60, 0},
	}
	for _, c := range cases {
		it := DefaultItemByKind(c.kind)
		if it.Kind != c.kind {
			t.Errorf("%s: kind = %s", c.kind, it.Kind)
		}
		if it.Shape != c.shape || it.Width != c.width || it.Height != c.height || it.Seats != c.seats {
			t.Errorf("%s: got shape=%s %gx%g seats=%d, want %s %gx%g seats=%d",
				c.kind, it.Shape, it.Width, it.Height, it.Seats, c.shape, c.width, c.height, c.seats)
		}
	}
}

func TestDefaultItemByKindUnknownFallsBackToGeneric(t *testing.T) {
	it := DefaultItemByKind(ItemKind("hot_tub"))
	if it.Kind != KindGeneric {
		t.Fatalf("kind = %s, want generic", it.Kind)
	}
	if it.Width != 100 || it.Height != 60 || it.Seats != 0 {
		t.Fatalf("unexpected generic defaults: %+v", it)
	}
}

func TestNormalizeKind(t *testing.T) {
	if got := NormalizeKind(KindBooth); got != KindBooth {
		t.Fatalf("booth normalized to %s", got)
	}
	if got := NormalizeKind(ItemKind("jacuzzi")); got != KindGeneric {
		t.Fatalf("unknown kind normalized to %s, want generic", got)
	}
}

func TestSeatMarkersCircle(t *testing.T) {
	for _, n := range []int{1, 2, 4, 7, 12} {
		it := DefaultItemByKind(KindTable)
		it.Seats = n
		markers := SeatMarkers(it)
		if len(markers) != n {
			t.Fatalf("seats=%d: got %d markers", n, len(markers))
		}
		wantR := it.Width/2 + 16
		for i, m := range markers {
			r := math.Hypot(m.X, m.Y)
			if math.Abs(r-wantR) > 1e-9 {
				t.Errorf("seats=%d marker %d: radius %g, want %g", n, i, r, wantR)
			}
		}
		assertPairwiseDistinct(t, markers)
	}
}

func TestSeatMarkersCircleStartsAtTop(t *testing.T) {
	it := DefaultItemByKind(KindTable)
	it.Seats = 4
	m := SeatMarkers(it)[0]
	if math.Abs(m.X) > 1e-9 || m.Y >= 0 {
		t.Fatalf("first marker = (%g, %g), want directly above center", m.X, m.Y)
	}
}

func TestSeatMarkersRect(t *testing.T) {
	it := DefaultItemByKind(KindRectTable)
	for _, n := range []int{1, 2, 4, 6, 9} {
		it.Seats = n
		markers := SeatMarkers(it)
		if len(markers) != n {
			t.Fatalf("seats=%d: got %d markers", n, len(markers))
		}
		for i, m := range markers {
			// Every seat sits 14 units outside one of the four edges.
			onX := math.Abs(math.Abs(m.X)-(it.Width/2+14)) < 1e-9
			onY := math.Abs(math.Abs(m.Y)-(it.Height/2+14)) < 1e-9
			if !onX && !onY {
				t.Errorf("seats=%d marker %d at (%g, %g) is not on the offset perimeter", n, i, m.X, m.Y)
			}
		}
		assertPairwiseDistinct(t, markers)
	}
}

func TestSeatMarkersRectStartsAtTopLeftCorner(t *testing.T) {
	it := DefaultItemByKind(KindRectTable)
	for _, n := range []int{1, 4, 9} {
		it.Seats = n
		m := SeatMarkers(it)[0]
		if m.X != -it.Width/2 || m.Y != -it.Height/2-14 {
			t.Fatalf("seats=%d: first marker = (%g, %g), want above the top-left corner", n, m.X, m.Y)
		}
	}
}

func TestSeatMarkersZeroSeats(t *testing.T) {
	if got := SeatMarkers(DefaultItemByKind(KindPlant)); got != nil {
		t.Fatalf("decor item produced %d markers", len(got))
	}
}

func assertPairwiseDistinct(t *testing.T, markers []SeatMarker) {
	t.Helper()
	for i := range markers {
		for j := i + 1; j < len(markers); j++ {
			if math.Abs(markers[i].X-markers[j].X) < 1e-9 && math.Abs(markers[i].Y-markers[j].Y) < 1e-9 {
				t.Fatalf("markers %d and %d coincide at (%g, %g)", i, j, markers[i].X, markers[i].Y)
			}
		}
	}
}

func TestLayoutItemJSONFlags(t *testing.T) {
	cases := []struct {
		state         ReservationState
		isReserved    bool
		ownerReserved bool
	}{
		{StateFree, false, false},
		{StateHeld, true, false},
		{StateOwnerLocked, true, true},
	}
	for _, c := range cases {
		it := DefaultItemByKind(KindTable)
		it.ID = "t-1"
		it.State = c.state

		raw, err := json.Marshal(it)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var wire map[string]interface{}
		if err := json.Unmarshal(raw, &wire); err != nil {
			t.Fatalf("unmarshal into map: %v", err)
		}
		if wire["isReserved"] != c.isReserved || wire["ownerReserved"] != c.ownerReserved {
			t.Errorf("state=%d: wire flags = (%v, %v), want (%v, %v)",
				c.state, wire["isReserved"], wire["ownerReserved"], c.isReserved, c.ownerReserved)
		}

		var back LayoutItem
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.State != c.state {
			t.Errorf("round-trip state = %d, want %d", back.State, c.state)
		}
	}
}

func TestStateFromFlagsOwnerWins(t *testing.T) {
	if got := StateFromFlags(false, true); got != StateOwnerLocked {
		t.Fatalf("ownerReserved without reserved = %d, want owner-locked", got)
	}
	if got := StateFromFlags(true, true); got != StateOwnerLocked {
		t.Fatalf("both flags = %d, want owner-locked", got)
	}
}
