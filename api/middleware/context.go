package middleware

import (
	"context"

	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
)

type contextKey string

const (
	ctxDeviceID  contextKey = "device_id"
	ctxPrincipal contextKey = "principal"
)

// DeviceIDFromContext returns the browser identity set by DeviceID.
func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext returns the authenticated caller, nil when anonymous.
func PrincipalFromContext(ctx context.Context) *identity.Principal {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPrincipal).(*identity.Principal); ok {
		return v
	}
	return nil
}

// SessionFromContext is a shortcut for the principal's session.
func SessionFromContext(ctx context.Context) *identity.Session {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return nil
	}
	session := p.Session
	return &session
}

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDeviceID, deviceID)
}

func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}
