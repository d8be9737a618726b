// Package testutil provides a scripted followers API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Response is one scripted reply of the followers endpoint
type Response struct {
	Status int
	Body   string
	Delay  time.Duration
}

// RecordedRequest captures what the client sent
type RecordedRequest struct {
	Path   string
	Cursor string
	Query  map[string]string
	Header http.Header
}

// FollowerServer serves its script in order. Once the script is exhausted it
// keeps answering with the last entry.
type FollowerServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	script   []Response
	next     int
	requests []RecordedRequest
}

// NewFollowerServer starts a server answering with script. Callers must Close it.
func NewFollowerServer(script ...Response) *FollowerServer {
	s := &FollowerServer{script: script}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *FollowerServer) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.Path, "/friendships/") || !strings.HasSuffix(r.URL.Path, "/followers/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Path:   r.URL.Path,
		Cursor: r.URL.Query().Get("max_id"),
		Query:  query,
		Header: r.Header.Clone(),
	})
	resp := Response{Status: http.StatusInternalServerError, Body: `{"status":"fail"}`}
	if len(s.script) > 0 {
		idx := s.next
		if idx >= len(s.script) {
			idx = len(s.script) - 1
		}
		resp = s.script[idx]
		s.next++
	}
	s.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}

// URL is the API root to hand to the client
func (s *FollowerServer) URL() string {
	return s.server.URL + "/api/v1"
}

// Requests returns what has been received so far
func (s *FollowerServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close shuts the server down
func (s *FollowerServer) Close() {
	s.server.Close()
}

// PageBody renders a followers page for the given pks. An empty cursor means last page.
func PageBody(pks []string, cursor string) string {
	users := make([]map[string]interface{}, 0, len(pks))
	for _, pk := range pks {
		users = append(users, map[string]interface{}{
			"pk":              pk,
			"username":        "user_" + pk,
			"full_name":       "User " + pk,
			"is_private":      false,
			"is_verified":     false,
			"profile_pic_url": fmt.Sprintf("https://cdn.example.com/%s.jpg", pk),
		})
	}

	body := map[string]interface{}{
		"users":     users,
		"big_list":  cursor != "",
		"page_size": len(pks),
		"status":    "ok",
	}
	if cursor != "" {
		body["next_max_id"] = cursor
	}
	data, _ := json.Marshal(body)
	return string(data)
}

// Page is a 200 response carrying pks and cursor
func Page(pks []string, cursor string) Response {
	return Response{Status: http.StatusOK, Body: PageBody(pks, cursor)}
}

// RateLimited is a plain 429
func RateLimited() Response {
	return Response{Status: http.StatusTooManyRequests, Body: `{"message":"Please wait a few minutes before you try again.","status":"fail"}`}
}

// PleaseWait is the 401 Instagram uses for soft throttling
func PleaseWait() Response {
	return Response{Status: http.StatusUnauthorized, Body: `{"message":"Please wait a few minutes before you try again.","require_login":true,"status":"fail"}`}
}

// LoginRequired is a 401 for an expired or revoked credential
func LoginRequired() Response {
	return Response{Status: http.StatusUnauthorized, Body: `{"message":"login_required","status":"fail"}`}
}

// ServerError is a 500
func ServerError() Response {
	return Response{Status: http.StatusInternalServerError, Body: `{"status":"fail"}`}
}

// Malformed is a 200 with a body that is not JSON
func Malformed() Response {
	return Response{Status: http.StatusOK, Body: `<html>oops</html>`}
}

// Keys returns "1".."n" offset by start, handy for building pages
func Keys(start, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", start+i)
	}
	return out
}
