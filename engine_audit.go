package permguard

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/permguard/audit"
	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/jwt"
	"github.com/MrEthical07/permguard/store"
)

const (
	auditEventPermissionGranted = "permission_granted"
	auditEventPermissionDenied  = "permission_denied"
	auditEventPermissionError   = "permission_error"
	auditEventFlagsChanged      = "flags_changed"
	auditEventAccessIssued      = "access_issued"
)

// AuditErrorCode is the stable error label written to audit events.
type AuditErrorCode string

const (
	auditErrPermissionDenied AuditErrorCode = "unauthorized"
	auditErrInvalidFlag      AuditErrorCode = "invalid_flag"
	auditErrInvalidMask      AuditErrorCode = "invalid_mask"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrInternal         AuditErrorCode = "internal_error"
)

var errPermissionDenied = errors.New("permission denied")

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.NewEvent(eventType, success)
	if caller, ok := CallerFromContext(ctx); ok {
		event.UserID = caller.UserID
		event.TenantID = caller.TenantID
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, bitfield.ErrInvalidFlag):
		return auditErrInvalidFlag
	case errors.Is(err, bitfield.ErrNegativeBits), errors.Is(err, bitfield.ErrUnresolvable):
		return auditErrInvalidMask
	case errors.Is(err, store.ErrRedisUnavailable):
		return auditErrUnavailable
	case errors.Is(err, jwt.ErrUnknownKID),
		errors.Is(err, jwt.ErrMissingKID),
		errors.Is(err, jwt.ErrFutureIAT):
		return auditErrInvalidToken
	default:
		return auditErrInternal
	}
}

func namesString(names []string) string {
	return strings.Join(names, ",")
}
