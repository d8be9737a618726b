package instagram

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FollowersResponse is the body of GET /friendships/{user_id}/followers/
type FollowersResponse struct {
	Users     []User `json:"users"`
	NextMaxID ID     `json:"next_max_id"`
	BigList   bool   `json:"big_list"`
	PageSize  int    `json:"page_size"`
	Status    string `json:"status"`

	// Present on failures
	Message      string `json:"message"`
	ErrorType    string `json:"error_type"`
	Spam         bool   `json:"spam"`
	RequireLogin bool   `json:"require_login"`
}

// User is a follower entry as returned by the API
type User struct {
	PK            ID     `json:"pk"`
	PKID          string `json:"pk_id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// ID accepts both JSON numbers and strings. Instagram is not consistent about which it sends.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// integers only; floats would lose precision on large pks
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		if _, uerr := strconv.ParseUint(n.String(), 10, 64); uerr != nil {
			return err
		}
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}
