package domain

import "time"

type RoomSource string

const (
	SourceLocal   RoomSource = "local"
	SourceChannel RoomSource = "channel"
)

// Room is one bookable physical unit. Several rooms may share a TypeKey,
// which makes them a pool for AvailableUnitsOfType.
type Room struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"type:varchar(120);not null" validate:"required,max=120"`
	TypeKey        string     `json:"type_key" gorm:"type:varchar(64);not null;index" validate:"required,max=64"`
	Description    string     `json:"description,omitempty" gorm:"type:text"`
	Capacity       int        `json:"capacity" gorm:"not null" validate:"required,gte=1"`
	Price          float64    `json:"price" gorm:"not null" validate:"gte=0"`
	TotalUnits     int        `json:"total_units" gorm:"not null;default:1" validate:"required,gte=1"`
	Source         RoomSource `json:"source" gorm:"type:varchar(16);not null;default:local" validate:"omitempty,oneof=local channel"`
	ExternalRoomID *string    `json:"external_room_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	IsActive       bool       `json:"is_active" gorm:"not null"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }
