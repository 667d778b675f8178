package models

import (
	"fmt"
	"time"
)

// Person is an entry of the employee directory. The directory is maintained
// elsewhere; this service only reads it.
type Person struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	FirstName string     `gorm:"default:''" json:"first_name"`
	LastName  string     `gorm:"default:''" json:"last_name"`
	Email     string     `gorm:"default:''" json:"email"`
	Telegram  string     `gorm:"default:''" json:"telegram"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (Person) TableName() string { return "people" }

// DisplayFirstName falls back to the id so envelopes never carry an empty name.
func (p Person) DisplayFirstName() string {
	if p.FirstName == "" {
		return fmt.Sprintf("%d", p.ID)
	}
	return p.FirstName
}

func PersonRef(id int64) string {
	return fmt.Sprintf("usr_%d", id)
}
