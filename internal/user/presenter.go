package user

import "time"

// Response is the public JSON shape of a user. updated_at is never exposed.
type Response struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	ProfilePicture *string    `json:"profile_picture"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

func ToResponse(u User) Response {
	resp := Response{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		ProfilePicture: u.ProfilePicture,
	}
	if !u.CreatedAt.IsZero() {
		createdAt := u.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

// ToList never returns nil, so an empty list encodes as [].
func ToList(users []User) []Response {
	out := make([]Response, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}
	return out
}
