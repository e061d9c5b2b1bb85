package users

import (
	"time"

	"github.com/angelmondragon/commission-engine/pkg/db/models"
)

// UserDTO is the transport shape of a directory entry.
type UserDTO struct {
	ID          int64     `json:"id"`
	ReferrerID  *int64    `json:"referrerId,omitempty"`
	IsActivated bool      `json:"isActivated"`
	CreatedAt   time.Time `json:"createdAt"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		ReferrerID:  u.ReferrerID,
		IsActivated: u.IsActivated,
		CreatedAt:   u.CreatedAt.UTC(),
	}
}
