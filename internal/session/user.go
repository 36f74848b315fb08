package session

import (
	"net/url"
	"strings"
)

// Stats are a user's public counters.
type Stats struct {
	Recipes   int `json:"recipes"`
	Followers int `json:"followers"`
	Following int `json:"following"`
	Likes     int `json:"likes"`
}

// User is the signed-in user's profile.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio"`
	Stats    Stats  `json:"stats"`
}

// Credentials are login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration are sign-up form values. Username may be empty, in which
// case it is derived from the email address.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate is a shallow merge into User. Nil fields are left alone.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

func (p ProfileUpdate) apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	return u
}

func localPart(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at]
}

func avatarFor(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=f97316&color=fff"
}
