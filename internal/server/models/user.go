package models

import "time"

// User is a registered account. UserName is the immutable primary key.
type User struct {
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the profile shape that may leave the service.
type PublicUser struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
}

// Public strips everything but the public profile fields.
func (u *User) Public() PublicUser {
	return PublicUser{UserName: u.UserName, Email: u.Email}
}
