package models

import "time"

// User is a dashboard account. Passwords are stored as bcrypt hashes
// and never leave the server.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Workplace    string    `db:"workplace" json:"workplace"`
	Admin        bool      `db:"admin" json:"admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
