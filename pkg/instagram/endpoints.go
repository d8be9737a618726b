package instagram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// BaseURL is the private mobile API root
	BaseURL = "https://i.instagram.com/api/v1"

	// WebURL is the public web root, used by the browser transport
	WebURL = "https://www.instagram.com"

	// FollowersPageSize is the count requested per page
	FollowersPageSize = 100

	// FollowersSearchSurface is sent as search_surface on every followers request
	FollowersSearchSurface = "follow_list_page"

	// CookieDomain is where session cookies are scoped
	CookieDomain = ".instagram.com"
)

var (
	followersURLPattern = regexp.MustCompile(`/friendships/([^/]+)/followers/?`)
	userIDPattern       = regexp.MustCompile(`^[0-9]{1,20}$`)
)

// FollowersPath returns the path of the followers endpoint for userID
func FollowersPath(userID string) string {
	return fmt.Sprintf("/friendships/%s/followers/", url.PathEscape(userID))
}

// FollowersURL constructs the followers URL. max_id is set only when a cursor is given.
func FollowersURL(base, userID, cursor string) string {
	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", FollowersPageSize))
	params.Set("search_surface", FollowersSearchSurface)
	if cursor != "" {
		params.Set("max_id", cursor)
	}

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), FollowersPath(userID), params.Encode())
}

// IsFollowersURL reports whether rawURL points at a followers listing
func IsFollowersURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return followersURLPattern.MatchString(u.Path)
}

// FollowersURLUserID returns the account id a followers URL is for
func FollowersURLUserID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	m := followersURLPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// GetFollowersPageURL is the web page that opens the followers dialog
func GetFollowersPageURL(username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/followers/", WebURL, username)
}

// IsValidUserID checks that id looks like a numeric account id
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return strings.TrimRight(username, "/ ")
}

// NormalizeToken makes sure the authorization value carries the Bearer scheme
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}
