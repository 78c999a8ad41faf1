package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Authorizer answers permission checks with a cache-aside read over the check-result and
// permission-set families. A denied check is a false result, never an error; only
// infrastructure failures are returned as errors.
type Authorizer struct {
	cache       service.PermissionCache
	source      service.PermissionSource
	audit       service.AuditSink
	logger      logger.Logger
	failOnWrite bool

	loads singleflight.Group
}

// NewAuthorizer creates an Authorizer. When failOnWrite is false a failed cache write-back is
// logged and the computed answer is still returned.
func NewAuthorizer(cache service.PermissionCache, source service.PermissionSource, audit service.AuditSink, log logger.Logger, failOnWrite bool) *Authorizer {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Authorizer{
		cache:       cache,
		source:      source,
		audit:       audit,
		logger:      log.WithComponent("authorizer"),
		failOnWrite: failOnWrite,
	}
}

// Check evaluates q.
func (a *Authorizer) Check(ctx context.Context, q CheckPermissionQuery) (bool, error) {
	userID := strings.TrimSpace(q.UserID)
	if userID == "" {
		return false, errors.ErrInvalidArgument("userId", "must not be blank")
	}
	name := strings.TrimSpace(q.Permission)
	resource := strings.TrimSpace(q.Resource)
	action := strings.TrimSpace(q.Action)
	if name == "" && (resource == "" || action == "") {
		return false, errors.ErrInvalidArgument("permission", "either a permission name or resource and action are required")
	}
	if name != "" {
		if err := models.ValidatePermissionName(name); err != nil {
			return false, err
		}
	} else if err := models.ValidateResourceAction(resource, action); err != nil {
		return false, err
	}
	key := models.PermissionCheckKey(resource, action, name)

	if allowed, lookup := a.cache.GetPermissionCheck(ctx, userID, key); lookup == models.CacheHit {
		return allowed, nil
	}

	perms, err := a.Permissions(ctx, userID)
	if err != nil {
		return false, err
	}

	allowed := false
	for _, p := range perms {
		if p.Matches(resource, action, name) {
			allowed = true
			break
		}
	}

	if err := a.writeBack(ctx, a.cache.PutPermissionCheck(ctx, userID, key, allowed)); err != nil {
		return false, err
	}

	a.logger.Debug(ctx, "Permission evaluated",
		logger.String("user_id", userID),
		logger.String("permission", key),
		logger.Bool("allowed", allowed))
	emit(ctx, a.audit, a.logger, constants.AuditEventAuthorizationEvaluated, userID, allowed, map[string]string{"permission": key})
	return allowed, nil
}

// Permissions returns the effective permission set of userID, loading it from the source on a
// cache miss. Concurrent cold loads for the same user share one source call.
func (a *Authorizer) Permissions(ctx context.Context, userID string) ([]models.Permission, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.ErrInvalidArgument("userId", "must not be blank")
	}

	perms, lookup := a.cache.GetUserPermissions(ctx, userID)
	switch lookup {
	case models.CacheHit:
		return perms, nil
	case models.CacheAbsent:
		return []models.Permission{}, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := a.loads.DoChan(userID, func() (interface{}, error) {
		return a.load(loadCtx, userID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Permission), nil
	case <-ctx.Done():
		return nil, errors.ErrInfrastructure("permission load", ctx.Err())
	}
}

func (a *Authorizer) load(ctx context.Context, userID string) ([]models.Permission, error) {
	start := time.Now()
	perms, err := a.source.EffectivePermissions(ctx, userID)
	if errors.IsNotFoundError(err) {
		a.logger.Debug(ctx, "Unknown principal, caching absent marker", logger.String("user_id", userID))
		if werr := a.writeBack(ctx, a.cache.PutUserPermissionsAbsent(ctx, userID)); werr != nil {
			return nil, werr
		}
		return []models.Permission{}, nil
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to load effective permissions", err, logger.String("user_id", userID))
		return nil, errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "permission source lookup failed")
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	if err := a.writeBack(ctx, a.cache.PutUserPermissions(ctx, userID, perms)); err != nil {
		return nil, err
	}
	a.logger.Debug(ctx, "Effective permissions loaded",
		logger.String("user_id", userID),
		logger.Int("count", len(perms)),
		logger.Duration("took", time.Since(start)))
	return perms, nil
}

func (a *Authorizer) writeBack(ctx context.Context, err error) error {
	return applyWritePolicy(ctx, a.logger, a.failOnWrite, err)
}

// applyWritePolicy decides whether a failed cache write fails the request.
func applyWritePolicy(ctx context.Context, log logger.Logger, failOnWrite bool, err error) error {
	if err == nil {
		return nil
	}
	if failOnWrite {
		return err
	}
	log.Warn(ctx, "Cache write-back failed, returning computed result", logger.Error(err))
	return nil
}

// emit sends an audit event without letting a sink failure reach the caller.
func emit(ctx context.Context, sink service.AuditSink, log logger.Logger, eventType constants.AuditEventType, subject string, success bool, attrs map[string]string) {
	if sink == nil {
		return
	}
	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		Success:    success,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
	if err := sink.Emit(ctx, event); err != nil {
		log.Warn(ctx, "Failed to emit audit event",
			logger.String("event_type", string(eventType)),
			logger.Error(err))
	}
}
