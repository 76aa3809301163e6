package user

import "strings"

//--
// Data model objects:
//--

// User is the author of an article, as reported by the issue tracker.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProfileURL returns the author's page on the hosting site, e.g.
// https://github.com/octocat.
func (u *User) ProfileURL(origin string) string {
	if u == nil || u.Login == "" {
		return ""
	}

	return strings.TrimSuffix(origin, "/") + "/" + u.Login
}
