package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is a peer review left by one user on another user's project
type Review struct {
	ID               uuid.UUID `json:"id"`
	IDProject        int64     `json:"idProject"`
	IDUser           int64     `json:"idUser"`
	IDProjectCreator int64     `json:"idProjectCreator"`
	UserURL          string    `json:"userUrl"`
	ProjectName      string    `json:"projectName"`
	ProjectURL       string    `json:"projectUrl"`
	Body             string    `json:"body"`
	Rating           int       `json:"rating"`
	CreatedAt        time.Time `json:"createdAt"`
}
