package permguard

import (
	"context"
	"fmt"

	"github.com/MrEthical07/permguard/jwt"
	"github.com/MrEthical07/permguard/metrics"
)

// IssueAccess signs an access token for a stored caller. The token carries
// the caller's current mask and store version.
func (e *Engine) IssueAccess(ctx context.Context, tenantID, userID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotInitialized
	}
	if userID == "" {
		return "", ErrMissingCaller
	}
	ctx = WithCaller(ctx, tenantID, userID)

	flags, err := e.UserFlags(ctx, tenantID, userID)
	if err != nil {
		return "", err
	}
	mask, err := e.table.New(flags)
	if err != nil {
		e.log.WithError(err).WithField("user_id", userID).Error("stored flags do not match table")
		return "", fmt.Errorf("issue access: %w", err)
	}
	version, err := e.store.Version(ctx, tenantID, userID)
	if err != nil {
		e.metrics.Inc(metrics.StoreError)
		return "", err
	}

	token, err := e.jwtManager.CreateAccess(jwt.Access{
		UserID:      userID,
		TenantID:    normalizeTenantID(tenantID),
		Mask:        mask.Value(),
		PermVersion: version,
		OmitMask:    e.config.JWT.OmitMask,
	})
	if err != nil {
		return "", err
	}

	e.metrics.Inc(metrics.TokenIssued)
	e.emitAudit(ctx, auditEventAccessIssued, true, nil, func() map[string]string {
		return map[string]string{"pv": fmt.Sprint(version)}
	})
	return token, nil
}

// ParseAccess verifies an access token issued by this engine.
func (e *Engine) ParseAccess(token string) (*jwt.AccessClaims, error) {
	if e == nil {
		return nil, ErrEngineNotInitialized
	}
	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		e.metrics.Inc(metrics.TokenRejected)
		return nil, err
	}
	return claims, nil
}
