package model

import "time"

// Theater is a screening room.  Showtimes are scheduled per theater and
// seats belong to exactly one theater.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name of the theater.
//  Location – free-form address or building description.
//  Capacity – number of seats used for occupancy reports.
type Theater struct {
	ID        uint64    `json:"id"`         // theaters.id
	Name      string    `json:"name"`       // theaters.name
	Location  string    `json:"location"`   // theaters.location
	Capacity  uint32    `json:"capacity"`   // theaters.capacity
	CreatedAt time.Time `json:"created_at"` // theaters.created_at
	UpdatedAt time.Time `json:"updated_at"` // theaters.updated_at
}
