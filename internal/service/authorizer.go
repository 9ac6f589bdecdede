package service

import (
	"context"
	"errors"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
)

// Authorizer 确认调用方拥有一个付费状态为 active 的开发者档案。
// 必须在写入任何提交记录之前执行。
type Authorizer struct {
	identity port.IdentityProvider
	profiles port.DeveloperProfileRepository
}

func NewAuthorizer(identity port.IdentityProvider, profiles port.DeveloperProfileRepository) *Authorizer {
	return &Authorizer{identity: identity, profiles: profiles}
}

func (a *Authorizer) Authorize(ctx context.Context, developerID string) (*domain.DeveloperProfile, error) {
	userID, err := a.identity.CurrentUserID(ctx)
	if err != nil || userID == "" {
		return nil, domain.NewPublishingError(domain.CodePermissionDenied,
			"authentication is required to publish apps", nil).WithCause(err)
	}

	profile, err := a.profiles.FindByID(ctx, developerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewPublishingError(domain.CodeProfileNotFound,
				"developer profile not found", map[string]any{"developer_id": developerID})
		}
		return nil, translateStoreError(err)
	}
	if profile.UserID != userID {
		return nil, domain.NewPublishingError(domain.CodePermissionDenied,
			"you do not have permission to publish for this developer profile", nil)
	}
	if !profile.CanPublish() {
		return nil, domain.NewPublishingError(domain.CodeInactiveAccount,
			"developer account is not active; complete payment setup before publishing",
			map[string]any{"payment_status": string(profile.PaymentStatus)})
	}
	return profile, nil
}
