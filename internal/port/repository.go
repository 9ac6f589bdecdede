package port

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
)

type SubmissionRepository interface {
	// Save 原子插入，(developer_id, name) 冲突时返回 domain.ErrAlreadyExists。
	Save(ctx context.Context, s *domain.AppSubmission) error
	FindByID(ctx context.Context, id string) (*domain.AppSubmission, error)
	FindByDeveloper(ctx context.Context, developerID string) ([]*domain.AppSubmission, error)
	Update(ctx context.Context, s *domain.AppSubmission) error
}

type ProcessingJobRepository interface {
	Save(ctx context.Context, job *domain.ProcessingJob) error
	FindByID(ctx context.Context, id string) (*domain.ProcessingJob, error)
	FindBySubmission(ctx context.Context, submissionID string) (*domain.ProcessingJob, error)
	Update(ctx context.Context, job *domain.ProcessingJob) error
}

type DeveloperProfileRepository interface {
	FindByID(ctx context.Context, id string) (*domain.DeveloperProfile, error)
}

type AssetRepository interface {
	Save(ctx context.Context, asset *domain.AppAsset) error
	FindBySubmission(ctx context.Context, submissionID string) ([]*domain.AppAsset, error)
}
