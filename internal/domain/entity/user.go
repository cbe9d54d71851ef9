package entity

import (
	"time"
)

// User is the aggregate root for the user domain. The identifier is
// assigned by the store on insert; records are not mutated afterwards
// in this core.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
