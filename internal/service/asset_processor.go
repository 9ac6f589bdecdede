package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/google/uuid"
)

// AssetProcessor 为每个截图登记一条待转码的 AppAsset。
// 多条插入之间没有事务，失败时已写入的记录保留。
type AssetProcessor struct {
	repo port.AssetRepository
	now  func() time.Time
}

func NewAssetProcessor(repo port.AssetRepository) *AssetProcessor {
	return &AssetProcessor{repo: repo, now: time.Now}
}

// RegisterAssets 逐条插入，onRegistered(done, total) 在每条成功后调用，可为 nil。
func (p *AssetProcessor) RegisterAssets(ctx context.Context, sub *domain.AppSubmission, urls []string, onRegistered func(done, total int)) error {
	for i, u := range urls {
		asset := &domain.AppAsset{
			ID:              uuid.New().String(),
			AppSubmissionID: sub.ID,
			AssetType:       domain.AssetTypeScreenshot,
			OriginalURL:     u,
			Status:          domain.AssetStatusPending,
			CreatedAt:       p.now().UTC(),
		}
		if err := p.repo.Save(ctx, asset); err != nil {
			return domain.NewProcessingError(fmt.Sprintf("failed to register asset %d (%s)", i, u), err)
		}
		if onRegistered != nil {
			onRegistered(i+1, len(urls))
		}
	}
	return nil
}

func (p *AssetProcessor) ListAssets(ctx context.Context, submissionID string) ([]*domain.AppAsset, error) {
	assets, err := p.repo.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []*domain.AppAsset{}
	}
	return assets, nil
}
