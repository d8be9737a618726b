// Package ratelimit paces requests against the followers endpoint.
//
// TokenBucket wraps golang.org/x/time/rate. It caps request volume over time and
// is independent of the backoff controller, which reacts to what the server says.
package ratelimit
