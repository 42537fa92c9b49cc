// internal/browser/context.go
package browser

import (
	"context"
)

// CombineContext creates a new context derived from ctx1 (the tab context,
// which carries the CDP connection values) that is canceled when either
// ctx1 or ctx2 (the operational context with the caller's deadline) is
// canceled. chromedp resolves its target from context values, so the
// combined context must inherit from the tab side.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
