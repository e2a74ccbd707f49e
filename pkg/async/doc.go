// Package async runs background tasks without bare go statements.
//
// SafeGo gives each task a timeout, recovers panics and logs failures through
// the logger carried by the parent context. The server uses it to warm the
// store connection at startup without delaying the listener:
//
//	async.SafeGo(ctx, 15*time.Second, "store warm-up", func(ctx context.Context) error {
//		return store.Ready(ctx)
//	})
package async
