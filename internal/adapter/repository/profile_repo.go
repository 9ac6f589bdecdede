package repository

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"gorm.io/gorm"
)

var _ port.DeveloperProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) FindByID(ctx context.Context, id string) (*domain.DeveloperProfile, error) {
	var m DeveloperProfileModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrProfileNotFound)
	}
	return &domain.DeveloperProfile{
		ID:            m.ID,
		UserID:        m.UserID,
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

// Upsert 仅供 CLI 初始化本地数据与测试使用。
func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.DeveloperProfile) error {
	return r.db.WithContext(ctx).Save(&DeveloperProfileModel{
		ID:            p.ID,
		UserID:        p.UserID,
		PaymentStatus: string(p.PaymentStatus),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}).Error
}
