package userpayload

import (
	"net/http"

	"github.com/SergeyParamoshkin/issueblog/internal/user"
)

//--
// Response payloads for the REST api.
//--

// UserPayload is the author of an article as shown to readers.
type UserPayload struct {
	*user.User
	ProfileURL string `json:"profile_url,omitempty"`
	Role       string `json:"role"`
}

// NewUserPayloadResponse links u to its profile on origin. It returns nil for
// a nil user.
func NewUserPayloadResponse(u *user.User, origin string) *UserPayload {
	if u == nil {
		return nil
	}

	return &UserPayload{User: u, ProfileURL: u.ProfileURL(origin)}
}

func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	u.Role = "author"

	return nil
}
