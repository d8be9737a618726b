// Package retry holds the backoff strategies and the controller that paces
// follower collection.
//
// Controller is pure: given the outcome of a page and the current streak of
// consecutive errors it returns whether to continue, retry the same cursor, or
// abort, and how long to wait first.
//
//	ctrl := retry.NewController(retry.DefaultPolicy(), nil)
//	d := ctrl.Decide(page.Outcome, consecutive)
//	consecutive = d.ErrorCount
//
// Rate limits back off linearly (20s, 35s, 50s... capped at five minutes),
// transient errors wait a uniform 5-10s and give up after three in a row, and
// auth failures abort at once.
//
// Do is a small generic retrier for best-effort side channels such as webhook
// delivery:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return post(ctx, payload)
//	}, &retry.Config{MaxAttempts: 3, Backoff: retry.DefaultExponentialBackoff()})
package retry
