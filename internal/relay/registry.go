package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"contentflow/internal/config"
	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/services"
)

// Observer receives the outcome of every publish attempt.
type Observer func(method Method, platform content.Platform, outcome string, elapsed time.Duration)

// BreakerSettings control the per-relay circuit breakers.
type BreakerSettings struct {
	FailureThreshold uint
	FailureWindow    uint
	Delay            time.Duration
}

// Registry routes posts to relays through their circuit breakers.
type Registry struct {
	relays        map[Method]Relay
	breakers      map[Method]circuitbreaker.CircuitBreaker[any]
	defaultMethod Method
	linkedIn      *LinkedInRelay
	logger        *slog.Logger
	observer      Observer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver records publish outcomes (metrics).
func WithObserver(obs Observer) RegistryOption {
	return func(r *Registry) { r.observer = obs }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry wraps relays with breakers built from settings.
func NewRegistry(defaultMethod Method, breaker BreakerSettings, relays []Relay, opts ...RegistryOption) *Registry {
	if breaker.FailureThreshold == 0 {
		breaker.FailureThreshold = 3
	}
	if breaker.FailureWindow < breaker.FailureThreshold {
		breaker.FailureWindow = breaker.FailureThreshold
	}
	if breaker.Delay <= 0 {
		breaker.Delay = time.Minute
	}
	if defaultMethod == "" {
		defaultMethod = DefaultMethod
	}
	reg := &Registry{
		relays:        make(map[Method]Relay, len(relays)),
		breakers:      make(map[Method]circuitbreaker.CircuitBreaker[any], len(relays)),
		defaultMethod: defaultMethod,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(reg)
	}
	for _, relay := range relays {
		method := relay.Method()
		reg.relays[method] = relay
		reg.breakers[method] = reg.newBreaker(method, breaker)
		if li, ok := relay.(*LinkedInRelay); ok {
			reg.linkedIn = li
		}
	}
	return reg
}

func (r *Registry) newBreaker(method Method, settings BreakerSettings) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(settings.FailureThreshold, settings.FailureWindow).
		WithDelay(settings.Delay).
		HandleIf(func(_ any, err error) bool {
			// transport errors, timeouts, 429 and 5xx; rejected posts do not count
			return errors.Is(err, services.ErrTransient) ||
				errors.Is(err, services.ErrTimeout)
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			r.logger.Warn("relay circuit breaker state change",
				logging.String("method", string(method)),
				logging.String("from_state", stateName(event.OldState)),
				logging.String("to_state", stateName(event.NewState)),
				logging.String(logging.FieldEventType, "relay_breaker_state"),
			)
		}).
		Build()
}

// NewFromConfig builds every relay from configuration.
func NewFromConfig(cfg *config.Config, settings Settings, conns Connections, logger *slog.Logger, opts ...RegistryOption) *Registry {
	timeout := time.Duration(cfg.Publishing.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	linkedIn := NewLinkedInRelay(LinkedInConfig{
		ClientID:     cfg.LinkedIn.ClientID,
		ClientSecret: cfg.LinkedIn.ClientSecret,
		RedirectURI:  cfg.LinkedInRedirectURI(),
		AuthorURN:    cfg.LinkedIn.AuthorURN,
		AuthBaseURL:  cfg.LinkedIn.AuthBaseURL,
		APIBaseURL:   cfg.LinkedIn.APIBaseURL,
	}, conns, client)
	relays := []Relay{
		linkedIn,
		NewMakeRelay(settings, cfg.Publishing.MakeWebhookURL, cfg.Publishing.ShareURL, client),
		NewZapierRelay(settings, cfg.Publishing.ZapierWebhookURL, client),
		NewBufferRelay(cfg.Buffer.BaseURL, cfg.Buffer.AccessToken, cfg.Buffer.Profiles, client),
	}
	method, err := ParseMethod(cfg.Publishing.DefaultMethod)
	if err != nil {
		method = DefaultMethod
	}
	opts = append([]RegistryOption{WithLogger(logger)}, opts...)
	return NewRegistry(method, BreakerSettings{
		FailureThreshold: uint(max(cfg.Publishing.BreakerFailureThreshold, 0)),
		FailureWindow:    uint(max(cfg.Publishing.BreakerFailureWindow, 0)),
		Delay:            time.Duration(cfg.Publishing.BreakerDelaySeconds) * time.Second,
	}, relays, opts...)
}

// DefaultMethod returns the method used when a post names none.
func (r *Registry) DefaultMethod() Method {
	return r.defaultMethod
}

// LinkedIn returns the direct relay for OAuth handling, or nil.
func (r *Registry) LinkedIn() *LinkedInRelay {
	return r.linkedIn
}

// Publish posts through method (the default when empty).
func (r *Registry) Publish(ctx context.Context, method Method, post Post) (Result, error) {
	if method == "" {
		method = r.defaultMethod
	}
	relay, ok := r.relays[method]
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "select relay",
			fmt.Sprintf("Unknown posting method: %s", method), nil)
	}
	breaker := r.breakers[method]

	start := time.Now()
	result, err := failsafe.With[any](breaker).WithContext(ctx).Get(func() (any, error) {
		return relay.Publish(ctx, post)
	})
	elapsed := time.Since(start)

	if errors.Is(err, circuitbreaker.ErrOpen) {
		r.observe(method, post.Platform, "breaker_open", elapsed)
		return Result{}, services.WithCode(services.Wrap(services.ErrTransient, stageName, string(method),
			fmt.Sprintf("%s relay is failing; try again later", method), err), "relay_unavailable")
	}
	if err != nil {
		r.observe(method, post.Platform, "error", elapsed)
		return Result{}, err
	}
	r.observe(method, post.Platform, "success", elapsed)
	return result.(Result), nil
}

func (r *Registry) observe(method Method, platform content.Platform, outcome string, elapsed time.Duration) {
	if r.observer != nil {
		r.observer(method, platform, outcome, elapsed)
	}
}

// BreakerState reports the breaker state for method ("closed" when unknown).
func (r *Registry) BreakerState(method Method) string {
	if breaker, ok := r.breakers[method]; ok {
		return stateName(breaker.State())
	}
	return stateName(circuitbreaker.ClosedState)
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

// AvailableMethods lists the methods that can post for platform.
func (r *Registry) AvailableMethods(ctx context.Context, platform content.Platform) []Method {
	var methods []Method
	for _, method := range Methods() {
		relay, ok := r.relays[method]
		if ok && relay.Configured(ctx, platform) {
			methods = append(methods, method)
		}
	}
	return methods
}

// IsPlatformConnected reports whether posts for platform can go out: the
// default webhook relay is configured, or LinkedIn holds a live grant.
func (r *Registry) IsPlatformConnected(ctx context.Context, platform content.Platform) bool {
	if r.defaultMethod == MethodMake {
		if relay, ok := r.relays[MethodMake]; ok && relay.Configured(ctx, platform) {
			return true
		}
	}
	if platform == content.PlatformLinkedIn && r.linkedIn != nil {
		return r.linkedIn.Connected(ctx)
	}
	return false
}
