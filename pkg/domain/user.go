package domain

import "strings"

// User is the authenticated viewer's identity record.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session is the result of a successful login or registration.
// Token is empty when the backend runs on cookie sessions; the cookie
// rides in the client's jar instead.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Initials returns up to two uppercase initials for avatar display.
func (u User) Initials() string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = u.Email
	}
	if name == "" {
		return "?"
	}
	if parts := strings.Fields(name); len(parts) >= 2 {
		return strings.ToUpper(string([]rune(parts[0])[:1]) + string([]rune(parts[1])[:1]))
	}
	runes := []rune(name)
	if len(runes) < 2 {
		return strings.ToUpper(string(runes))
	}
	return strings.ToUpper(string(runes[:2]))
}
