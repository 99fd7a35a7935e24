package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/zenGate-Global/palmyra-storefront/platform/go/auth"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "PALMYRA_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata for traceability.
// UserID is set only when ActorKind is user. Role is empty until a profile is resolved.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	Role      identity.Role
	TenantID  *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrSystem returns the stored AuditInfo, or a system record for background work.
func FromContextOrSystem(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return System("")
}

// FromPrincipal builds an AuditInfo for a verified token whose profile is not known yet.
func FromPrincipal(p *platformauth.Principal, requestID string) (AuditInfo, error) {
	if p == nil {
		return AuditInfo{}, errors.New("principal is required to build audit info")
	}
	if p.ID == "" {
		return AuditInfo{}, errors.New("principal id is required to build audit info")
	}
	id := p.ID
	return AuditInfo{ActorKind: ActorKindUser, UserID: &id, RequestID: requestID}, nil
}

// FromProfile builds an AuditInfo from a resolved profile.
func FromProfile(p identity.Profile, requestID string) AuditInfo {
	id := p.ID
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &id,
		Role:      p.Role,
		TenantID:  p.TenantID,
		RequestID: requestID,
	}
}

// Anonymous builds an AuditInfo for guests (storefront browsing, registration).
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background and CLI operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
