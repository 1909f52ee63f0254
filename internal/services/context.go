package services

import "context"

// Scope identifies the work a context belongs to. Loggers and error
// wrappers read it to tag output with the item, stage and lane.
type Scope struct {
	ItemID    int64
	Stage     string
	Lane      string
	RequestID string
	Platform  string
}

type scopeKey struct{}

// ScopeFrom returns the scope attached to ctx, or the zero Scope.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}

// withScope stores a modified copy so parent contexts are never affected.
func withScope(ctx context.Context, edit func(*Scope)) context.Context {
	scope := ScopeFrom(ctx)
	edit(&scope)
	return context.WithValue(ctx, scopeKey{}, scope)
}

func WithItemID(ctx context.Context, id int64) context.Context {
	return withScope(ctx, func(s *Scope) { s.ItemID = id })
}

func ItemIDFromContext(ctx context.Context) (int64, bool) {
	id := ScopeFrom(ctx).ItemID
	return id, id != 0
}

// WithStage records the stage name. Empty values leave ctx unchanged, as
// do the other string setters below.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Stage = stage })
}

func StageFromContext(ctx context.Context) (string, bool) {
	stage := ScopeFrom(ctx).Stage
	return stage, stage != ""
}

// WithLane records the workflow lane (generate or render).
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Lane = lane })
}

func LaneFromContext(ctx context.Context) (string, bool) {
	lane := ScopeFrom(ctx).Lane
	return lane, lane != ""
}

// WithRequestID records the correlation id of one stage run.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.RequestID = id })
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := ScopeFrom(ctx).RequestID
	return id, id != ""
}

// WithPlatform records the item's target social platform.
func WithPlatform(ctx context.Context, platform string) context.Context {
	if platform == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Platform = platform })
}

func PlatformFromContext(ctx context.Context) (string, bool) {
	platform := ScopeFrom(ctx).Platform
	return platform, platform != ""
}
