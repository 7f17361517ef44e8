// Package model defines the data structures shared by the store, service and
// HTTP layers.
package model

import "time"

// User is a registered account.
//
// Username and Email are each unique across all users. PasswordHash is a
// salted bcrypt digest and is never serialized.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
