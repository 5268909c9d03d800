package logging

import (
	"context"
	"log/slog"
)

// Attribute keys shared by the dispatcher, the transport and the handlers.
const (
	KeyChannel   = "channel"
	KeyRequestID = "request_id"
	KeyConnID    = "conn_id"
)

// FromOr extracts the logger from ctx, or returns fallback when ctx carries none.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return L()
}

// ForCommand returns a context whose logger carries the command's channel.
// The logger already in ctx is extended; fallback is used when there is none.
func ForCommand(ctx context.Context, cmd interface{ CommandName() string }, fallback *slog.Logger) (context.Context, *slog.Logger) {
	logger := FromOr(ctx, fallback).With(KeyChannel, cmd.CommandName())
	return With(ctx, logger), logger
}

// ForRequest tags the logger in ctx with a cross-process request id.
func ForRequest(ctx context.Context, requestID string) context.Context {
	return WithAttrs(ctx, KeyRequestID, requestID)
}

// EventAttr describes an event in a log record.
func EventAttr(e interface{ EventName() string }) slog.Attr {
	return slog.String(KeyChannel, e.EventName())
}
