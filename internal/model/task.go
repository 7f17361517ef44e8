package model

import "time"

// Task is a single to-do item.
//
// Owner is the id of the user who created it. Done only ever moves from
// false to true.
type Task struct {
	ID        string    `json:"id"        db:"id"`
	Text      string    `json:"text"      db:"text"`
	Done      bool      `json:"done"      db:"done"`
	Owner     string    `json:"owner"     db:"owner"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
