package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the database model for the users table.
// username and email carry UNIQUE constraints; their violation is the
// authoritative duplicate signal under concurrent registration.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                int64     `bun:"id,pk,autoincrement"`
	Username          string    `bun:"username,notnull,unique"`
	Email             string    `bun:"email,notnull,unique"`
	PasswordHash      string    `bun:"hash_password,notnull"`
	URL               string    `bun:"url,notnull"`
	RegisterDate      time.Time `bun:"register_date,notnull"`
	Role              string    `bun:"role,notnull,nullzero,default:'user'"`
	VerifiedEmail     bool      `bun:"verified_email,notnull,default:false"`
	ProfilePictureSrc string    `bun:"profile_picture_src,notnull"`
}

// Review is the database model for the project_reviews table
type Review struct {
	bun.BaseModel `bun:"table:project_reviews,alias:r"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	IDProject        int64     `bun:"id_project,notnull"`
	IDUser           int64     `bun:"id_user,notnull"`
	IDProjectCreator int64     `bun:"id_project_creator,notnull"`
	UserURL          string    `bun:"user_url,notnull"`
	ProjectName      string    `bun:"project_name,notnull"`
	ProjectURL       string    `bun:"project_url,notnull"`
	Body             string    `bun:"body,notnull"`
	Rating           int       `bun:"rating"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}
