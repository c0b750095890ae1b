package room

type RoomRequest struct {
	Name           string   `json:"name"`
	TypeKey        string   `json:"type_key"`
	Description    string   `json:"description"`
	Capacity       int      `json:"capacity"`
	Price          *float64 `json:"price"`
	TotalUnits     int      `json:"total_units"`
	Source         string   `json:"source"`
	ExternalRoomID *string  `json:"external_room_id"`
	IsActive       *bool    `json:"is_active"`
}
