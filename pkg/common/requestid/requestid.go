// Package requestid carries the per-request correlation id through contexts.
package requestid

import "context"

type ctxKey struct{}

const Header = "X-Request-ID"

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the id stored in ctx, or "" when none was set.
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
