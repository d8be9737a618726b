// Package instagram implements the followers page fetcher.
//
// Client.Fetch issues exactly one GET against /friendships/{user_id}/followers/
// and returns a classified models.PageResult. Classify holds the status and
// body rules and is shared with the passive browser transport.
//
//	client := instagram.NewClient(instagram.ClientOptions{Timeout: 30 * time.Second}, cred, log)
//	page := client.Fetch(ctx, "1234567", "")
//	for page.HasMore() { ... }
package instagram
