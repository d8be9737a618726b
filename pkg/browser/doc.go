// Package browser is the passive transport for follower collection.
//
// A Session drives a headless Chrome tab with chromedp, scrolls the followers
// dialog of a profile and hands every followers API response the page makes
// to an Interceptor. The Interceptor exposes those responses as a channel of
// models.Event that collector.Engine.Consume reads:
//
//	ic := browser.NewInterceptor(64, metrics.Default(), log)
//	ic.SetUserID(userID)
//	session := browser.NewSession(opts, cred, ic, log)
//	go session.Run(ctx)
//	result, err := engine.Consume(ctx, ic.Events())
//
// The channel is closed when the session ends.
package browser
