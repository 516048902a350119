package model

import "time"

// User is a registered identity. The ledger core treats identities as
// opaque strings; this table only backs the dev login flow.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName sets the users table name.
func (User) TableName() string {
	return "users"
}
