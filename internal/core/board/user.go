package board

import "strings"

// User is the display identity of a team member.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email,omitempty" yaml:"email"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url"`
}

// DisplayName falls back to the email local part, then the ID.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return u.ID
}

// Initials returns up to two upper-case initials of the display name.
func (u User) Initials() string {
	var initials []rune
	for _, f := range strings.Fields(u.DisplayName()) {
		if len(initials) == 2 {
			break
		}
		initials = append(initials, []rune(f)[0])
	}
	return strings.ToUpper(string(initials))
}
