// Package logctx enriches slog records with session and task identity
// carried through context.
package logctx

import (
	"context"
	"log/slog"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		r.AddAttrs(slog.Group("sess",
			slog.String("id", sd.SessionID),
		))
	}

	if td, ok := ctx.Value(taskDataKey{}).(*TaskData); ok {
		r.AddAttrs(slog.Group("task",
			slog.String("id", td.TaskID),
			slog.String("method", td.Method),
			slog.String("url", td.URL),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type sessionDataKey struct{}

type SessionData struct {
	SessionID string
}

func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

type taskDataKey struct{}

type TaskData struct {
	TaskID string
	Method string
	URL    string
}

func WithTaskData(ctx context.Context, data *TaskData) context.Context {
	return context.WithValue(ctx, taskDataKey{}, data)
}
