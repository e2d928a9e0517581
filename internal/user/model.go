package user

import "time"

type User struct {
	ID                int64     `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // Never expose password hash in JSON
	URL               string    `json:"url"`
	RegisterDate      time.Time `json:"register_date"`
	Role              string    `json:"role"`
	VerifiedEmail     bool      `json:"verified_email"`
	ProfilePictureSrc string    `json:"profile_picture_src"`
}
