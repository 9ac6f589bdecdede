package service

import (
	"context"
	"errors"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/google/uuid"
)

// SubmissionStore 管理 AppSubmission 记录的生命周期。
type SubmissionStore struct {
	repo port.SubmissionRepository
	now  func() time.Time
}

func NewSubmissionStore(repo port.SubmissionRepository) *SubmissionStore {
	return &SubmissionStore{repo: repo, now: time.Now}
}

// Create 以 pending 状态原子插入一条提交，id 和时间戳由服务端生成。
func (s *SubmissionStore) Create(ctx context.Context, fields domain.SubmissionFields, repositoryURL string) (*domain.AppSubmission, error) {
	now := s.now().UTC()
	version := fields.Version
	if version == "" {
		version = domain.DefaultVersion
	}
	sub := &domain.AppSubmission{
		ID:               uuid.New().String(),
		DeveloperID:      fields.DeveloperID,
		Name:             fields.Name,
		Description:      fields.Description,
		ShortDescription: fields.ShortDescription,
		Category:         fields.Category,
		Tags:             nonNil(fields.Tags),
		Price:            fields.Price,
		IconURL:          fields.IconURL,
		Screenshots:      nonNil(fields.Screenshots),
		Features:         nonNil(fields.Features),
		Version:          version,
		Status:           domain.SubmissionStatusPending,
		SubmissionDate:   now,
		Metadata: domain.SubmissionMetadata{
			RepositoryURL: repositoryURL,
			BuildConfig:   fields.BuildConfig.WithDefaults(),
		},
		LastUpdated: now,
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			return nil, domain.NewPublishingError(domain.CodeDuplicateAppName,
				"an app with this name already exists for this developer",
				map[string]any{"name": fields.Name}).WithCause(err)
		case errors.Is(err, domain.ErrPermissionDenied), isPermissionMessage(err):
			return nil, translateStoreError(err)
		}
		return nil, domain.NewPublishingError(domain.CodeSubmissionFailed,
			"failed to create app submission", map[string]any{"original": err.Error()}).WithCause(err)
	}
	return sub, nil
}

// GetByID 记录不存在时返回 nil, nil。
func (s *SubmissionStore) GetByID(ctx context.Context, id string) (*domain.AppSubmission, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// ListByDeveloper 无记录时返回空切片。
func (s *SubmissionStore) ListByDeveloper(ctx context.Context, developerID string) ([]*domain.AppSubmission, error) {
	subs, err := s.repo.FindByDeveloper(ctx, developerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []*domain.AppSubmission{}, nil
		}
		return nil, err
	}
	if subs == nil {
		subs = []*domain.AppSubmission{}
	}
	return subs, nil
}

// MarkPendingReview 写入构建产物地址并推进到待审核状态。
func (s *SubmissionStore) MarkPendingReview(ctx context.Context, sub *domain.AppSubmission, binaryURL string) error {
	sub.BinaryURL = binaryURL
	sub.Status = domain.SubmissionStatusPendingReview
	sub.LastUpdated = s.now().UTC()
	return s.repo.Update(ctx, sub)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
