package model

import (
    "encoding/json"
    "math"
)

// ItemKind identifies the type of object placed on a floor plan.  Seating
// kinds (tables and booths) carry a seat count; decor kinds (sofa, plant,
// door, window) always have zero seats.
type ItemKind string

// Supported item kinds.  Unknown kinds fall back to KindGeneric.
const (
    KindTable     ItemKind = "table"      // round table
    KindRectTable ItemKind = "rect_table" // rectangular table
    KindOvalTable ItemKind = "oval_table" // oval table
    KindBooth     ItemKind = "booth"      // wall booth
    KindSofa      ItemKind = "sofa"       // decor
    KindPlant     ItemKind = "plant"      // decor
    KindDoor      ItemKind = "door"       // decor
    KindWindow    ItemKind = "window"     // decor
    KindGeneric   ItemKind = "generic"    // catch-all
)

// ItemShape is the render shape of an item.  It is derived from the kind at
// creation time but stored independently so a client can restyle an item
// without changing its kind.
type ItemShape string

const (
    ShapeCircle ItemShape = "circle"
    ShapeRect   ItemShape = "rect"
    ShapeOval   ItemShape = "oval"
)

// ReservationState is the single tagged reservation state of an item.  It
// replaces the two independent isReserved/ownerReserved booleans of the wire
// format: free means the table is open, held means it is currently
// occupied or held by staff, owner-locked is the stricter override that only
// the restaurant owner may clear.
type ReservationState uint8

const (
    StateFree ReservationState = iota
    StateHeld
    StateOwnerLocked
)

// StateFromFlags maps the wire-format boolean pair onto a ReservationState.
// ownerReserved wins when both are set.
func StateFromFlags(reserved, ownerReserved bool) ReservationState {
    switch {
    case ownerReserved:
        return StateOwnerLocked
    case reserved:
        return StateHeld
    default:
        return StateFree
    }
}

// Flags returns the wire-format boolean pair for the state.  An owner-locked
// item reports both flags set: it is reserved, and additionally locked.
func (s ReservationState) Flags() (reserved, ownerReserved bool) {
    switch s {
    case StateHeld:
        return true, false
    case StateOwnerLocked:
        return true, true
    default:
        return false, false
    }
}

// Reserved reports whether the item should render as reserved at all.
func (s ReservationState) Reserved() bool { return s != StateFree }

// LayoutItem is a placeable floor-plan object: a table, booth or piece of
// decor.  Position and size are in plan units, rotation in degrees 0-359.
// The reservation state is stored as the State enum and marshalled to the
// isReserved/ownerReserved boolean pair every existing client understands.
//
// Version is an optimistic counter: every persisted mutation increments it,
// and an update carrying a stale version is rejected with a conflict so two
// concurrent editors cannot silently clobber each other's geometry edits.
type LayoutItem struct {
    ID       string            `json:"id"`
    Kind     ItemKind          `json:"kind"`
    Shape    ItemShape         `json:"shape"`
    X        float64           `json:"x"`
    Y        float64           `json:"y"`
    Width    float64           `json:"width"`
    Height   float64           `json:"height"`
    Rotation int               `json:"rotation"`
    Seats    int               `json:"seats"`
    State    ReservationState  `json:"-"`
    Meta     map[string]string `json:"meta,omitempty"`
    Version  int               `json:"version"`
}

// Label returns the display label from the meta bag, or the kind name when
// no label has been set.
func (it LayoutItem) Label() string {
    if it.Meta != nil {
        if l, ok := it.Meta["label"]; ok && l != "" {
            return l
        }
    }
    return string(it.Kind)
}

// layoutItemJSON is the wire representation of a LayoutItem.  The alias type
// drops the custom marshaller so the plain fields round-trip unchanged.
type layoutItemAlias LayoutItem

type layoutItemJSON struct {
    layoutItemAlias
    IsReserved    bool `json:"isReserved"`
    OwnerReserved bool `json:"ownerReserved"`
}

// MarshalJSON emits the dual reservation booleans expected by clients.
func (it LayoutItem) MarshalJSON() ([]byte, error) {
    reserved, ownerReserved := it.State.Flags()
    return json.Marshal(layoutItemJSON{
        layoutItemAlias: layoutItemAlias(it),
        IsReserved:      reserved,
        OwnerReserved:   ownerReserved,
    })
}

// UnmarshalJSON folds the dual booleans back into the State enum.
func (it *LayoutItem) UnmarshalJSON(b []byte) error {
    var aux layoutItemJSON
    if err := json.Unmarshal(b, &aux); err != nil {
        return err
    }
    *it = LayoutItem(aux.layoutItemAlias)
    it.State = StateFromFlags(aux.IsReserved, aux.OwnerReserved)
    return nil
}

// itemDefault holds per-kind default geometry and seating.
type itemDefault struct {
    Shape  ItemShape
    Width  float64
    Height float64
    Seats  int
    Label  string
}

// kindDefaults is the data-driven lookup table for per-kind defaults.  New
// kinds are added here, not as branching logic.
var kindDefaults = map[ItemKind]itemDefault{
    KindTable:     {Shape: ShapeCircle, Width: 80, Height: 80, Seats: 4, Label: "Table"},
    KindRectTable: {Shape: ShapeRect, Width: 120, Height: 80, Seats: 4, Label: "Table"},
    KindOvalTable: {Shape: ShapeOval, Width: 140, Height: 80, Seats: 6, Label: "Oval"},
    KindBooth:     {Shape: ShapeRect, Width: 240, Height: 80, Seats: 6, Label: "Booth"},
    KindSofa:      {Shape: ShapeRect, Width: 160, Height: 60, Seats: 0, Label: "Sofa"},
    KindPlant:     {Shape: ShapeRect, Width: 36, Height: 36, Seats: 0, Label: "Plant"},
    KindDoor:      {Shape: ShapeRect, Width: 80, Height: 12, Seats: 0, Label: "Door"},
    KindWindow:    {Shape: ShapeRect, Width: 100, Height: 12, Seats: 0, Label: "Window"},
    KindGeneric:   {Shape: ShapeRect, Width: 100, Height: 60, Seats: 0, Label: ""},
}

// NormalizeKind maps unknown kinds onto KindGeneric so client-supplied
// strings never leak past the model layer.
func NormalizeKind(kind ItemKind) ItemKind {
    if _, ok := kindDefaults[kind]; ok {
        return kind
    }
    return KindGeneric
}

// DefaultItemByKind builds a LayoutItem with the default shape, size and
// seat count for the kind.  Unknown kinds become generic.  The caller sets
// the id and position.
func DefaultItemByKind(kind ItemKind) LayoutItem {
    d, ok := kindDefaults[kind]
    if !ok {
        kind = KindGeneric
        d = kindDefaults[KindGeneric]
    }
    it := LayoutItem{
        Kind:   kind,
        Shape:  d.Shape,
        Width:  d.Width,
        Height: d.Height,
        Seats:  d.Seats,
        Meta:   map[string]string{},
    }
    if d.Label != "" {
        it.Meta["label"] = d.Label
    }
    return it
}

// SeatMarker is a seat position relative to the item's center.
type SeatMarker struct {
    X float64 `json:"x"`
    Y float64 `json:"y"`
}

// seatRingGap is the distance between a round table's edge and its seat ring.
const seatRingGap = 16

// seatEdgeGap is the outward offset of seats from a rectangular table's edge.
const seatEdgeGap = 14

// SeatMarkers computes seat positions around an item's perimeter.  Round and
// oval shapes place seats evenly on a circle of radius width/2 + 16 starting
// at the top and walking clockwise.  Rectangular shapes walk the perimeter
// clockwise from the top-left corner across the top, right, bottom and left
// edges in proportion to edge length, each seat offset 14 units outward.
// The result has exactly item.Seats entries, pairwise distinct.
func SeatMarkers(it LayoutItem) []SeatMarker {
    n := it.Seats
    if n <= 0 {
        return nil
    }
    out := make([]SeatMarker, 0, n)
    if it.Shape == ShapeCircle || it.Shape == ShapeOval {
        r := it.Width/2 + seatRingGap
        for i := 0; i < n; i++ {
            angle := (float64(i)/float64(n))*2*math.Pi - math.Pi/2
            out = append(out, SeatMarker{X: math.Cos(angle) * r, Y: math.Sin(angle) * r})
        }
        return out
    }
    w, h := it.Width, it.Height
    perimeter := 2 * (w + h)
    for i := 0; i < n; i++ {
        dist := float64(i) / float64(n) * perimeter
        var x, y float64
        switch {
        case dist < w/2: // top edge, from the left corner
            x = -w/2 + dist
            y = -h/2 - seatEdgeGap
        case dist < w/2+h: // right edge, top to bottom
            d := dist - w/2
            x = w/2 + seatEdgeGap
            y = -h/2 + d
        case dist < w/2+h+w: // bottom edge, right to left
            d := dist - (w/2 + h)
            x = w/2 - d
            y = h/2 + seatEdgeGap
        default: // left edge, climbing back toward the start
            d := dist - (w/2 + h + w)
            x = -w/2 - seatEdgeGap
            y = h/2 - d
        }
        out = append(out, SeatMarker{X: x, Y: y})
    }
    return out
}
