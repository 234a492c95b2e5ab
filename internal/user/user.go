package user

import (
	"math"
	"strings"
	"time"
)

// User is one row of the users table.
type User struct {
	ID             int
	Name           string
	Email          string
	Phone          string
	ProfilePicture *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Input carries the client-editable fields of a registration or update.
type Input struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
}

func (in Input) normalize() Input {
	return Input{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
	}
}

// Validate reports ErrValidation when name, email or phone is empty.
func (in Input) Validate() error {
	if in.Name == "" || in.Email == "" || in.Phone == "" {
		return ErrValidation
	}
	return nil
}

// validID reports whether id fits the SERIAL (int4) id column.
func validID(id int) bool {
	return id > 0 && id <= math.MaxInt32
}
