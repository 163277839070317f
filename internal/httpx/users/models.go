package users

import (
	"time"

	"fiber-ent-blog/internal/store"
)

// UserView is a user as listed to staff.
// swagger:model UserView
type UserView struct {
	ID         int64     `json:"id" example:"1"`
	Username   string    `json:"username" example:"leo"`
	IsStaff    bool      `json:"is_staff" example:"false"`
	DateJoined time.Time `json:"date_joined"`
}

func viewOf(u *store.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, IsStaff: u.IsStaff, DateJoined: u.DateJoined}
}
