package utils

import (
	"context"
)

type RunContext struct {
	RunID       string
	MailboxUser string
}

type runContextKey struct{}

func WithRunContext(ctx context.Context, runContext *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, runContext)
}

func GetRunContext(ctx context.Context) *RunContext {
	runContext, ok := ctx.Value(runContextKey{}).(*RunContext)
	if !ok {
		return new(RunContext)
	}
	return runContext
}

func GetRunIDFromContext(ctx context.Context) string {
	return GetRunContext(ctx).RunID
}

func GetMailboxUserFromContext(ctx context.Context) string {
	return GetRunContext(ctx).MailboxUser
}
