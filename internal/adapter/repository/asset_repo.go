package repository

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"gorm.io/gorm"
)

var _ port.AssetRepository = (*AssetRepo)(nil)

type AssetRepo struct {
	db *gorm.DB
}

func NewAssetRepo(db *gorm.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

func (r *AssetRepo) Save(ctx context.Context, a *domain.AppAsset) error {
	m := &AppAssetModel{
		ID:              a.ID,
		AppSubmissionID: a.AppSubmissionID,
		AssetType:       string(a.AssetType),
		OriginalURL:     a.OriginalURL,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
	}
	return translate(r.db.WithContext(ctx).Create(m).Error, nil)
}

func (r *AssetRepo) FindBySubmission(ctx context.Context, submissionID string) ([]*domain.AppAsset, error) {
	var models []AppAssetModel
	err := r.db.WithContext(ctx).
		Where("app_submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	assets := make([]*domain.AppAsset, 0, len(models))
	for i := range models {
		m := &models[i]
		assets = append(assets, &domain.AppAsset{
			ID:              m.ID,
			AppSubmissionID: m.AppSubmissionID,
			AssetType:       domain.AssetType(m.AssetType),
			OriginalURL:     m.OriginalURL,
			Status:          domain.AssetStatus(m.Status),
			CreatedAt:       m.CreatedAt,
		})
	}
	return assets, nil
}
