package user

import "time"

// Gender values accepted at registration. The DB check constraint enforces
// the same set.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Gender       string    `json:"gender"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public is the wire shape handlers return for a user. Timestamps and the
// password hash stay server-side.
type Public struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Gender string `json:"gender"`
}

func (u User) Public() Public {
	return Public{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Gender: u.Gender,
	}
}
