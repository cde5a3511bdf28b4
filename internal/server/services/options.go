package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/authkeeper/internal/server/services"

// PasswordPolicy is the strength check and hashing used by the services.
// *password.Policy implements it.
type PasswordPolicy interface {
	ValidateStrength(password string) error
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string)
}

type options struct {
	now      func() time.Time
	policy   PasswordPolicy
	notifier ResetNotifier
	tracer   trace.Tracer
	newToken func(size int) (string, error)
}

type Option func(*options)

// WithClock replaces time.Now in the service and in the lockout and token
// components it builds.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPasswordPolicy replaces the bcrypt policy built from the config.
func WithPasswordPolicy(p PasswordPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithResetNotifier sets where reset tokens are delivered.
func WithResetNotifier(n ResetNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithTokenSource replaces the random generator of refresh and reset tokens.
func WithTokenSource(fn func(size int) (string, error)) Option {
	return func(o *options) { o.newToken = fn }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

func startSpan(ctx context.Context, t trace.Tracer, op string) (context.Context, trace.Span) {
	return t.Start(ctx, "services."+op, trace.WithAttributes(attribute.String("authkeeper.op", op)))
}

func attrOutcome(v string) attribute.KeyValue {
	return attribute.String("authkeeper.outcome", v)
}
