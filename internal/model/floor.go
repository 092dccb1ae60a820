package model

// Default canvas dimensions for a floor that has never been saved with an
// explicit size.
const (
    DefaultFloorWidth  = 1200
    DefaultFloorHeight = 800
)

// Floor is a named 2D layout surface belonging to a restaurant.  A floor is
// identified by the (RestaurantID, FloorKey) pair; FloorKey is a short
// stable identifier such as "main" or "terrace" while FloorName is the
// display name.  A floor with no items is valid and distinct from a floor
// that does not exist.
type Floor struct {
    RestaurantID string       `json:"restaurantId"`
    FloorKey     string       `json:"floorKey"`
    FloorName    string       `json:"floorName"`
    Width        float64      `json:"width"`
    Height       float64      `json:"height"`
    Items        []LayoutItem `json:"items"`
}

// NewFloor returns an empty floor with default canvas dimensions.
func NewFloor(restaurantID, floorKey string) Floor {
    return Floor{
        RestaurantID: restaurantID,
        FloorKey:     floorKey,
        FloorName:    floorKey,
        Width:        DefaultFloorWidth,
        Height:       DefaultFloorHeight,
        Items:        []LayoutItem{},
    }
}
