package repository

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var _ port.SubmissionRepository = (*SubmissionRepo)(nil)

type SubmissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

func (r *SubmissionRepo) Save(ctx context.Context, s *domain.AppSubmission) error {
	return translate(r.db.WithContext(ctx).Create(submissionToModel(s)).Error, nil)
}

func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*domain.AppSubmission, error) {
	var m AppSubmissionModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrSubmissionNotFound)
	}
	return modelToSubmission(&m), nil
}

// FindByDeveloper 按提交时间倒序返回。
func (r *SubmissionRepo) FindByDeveloper(ctx context.Context, developerID string) ([]*domain.AppSubmission, error) {
	var models []AppSubmissionModel
	err := r.db.WithContext(ctx).
		Where("developer_id = ?", developerID).
		Order("submission_date DESC").
		Find(&models).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	subs := make([]*domain.AppSubmission, 0, len(models))
	for i := range models {
		subs = append(subs, modelToSubmission(&models[i]))
	}
	return subs, nil
}

func (r *SubmissionRepo) Update(ctx context.Context, s *domain.AppSubmission) error {
	return translate(r.db.WithContext(ctx).Save(submissionToModel(s)).Error, nil)
}

func submissionToModel(s *domain.AppSubmission) *AppSubmissionModel {
	bc := s.Metadata.BuildConfig
	return &AppSubmissionModel{
		ID:               s.ID,
		DeveloperID:      s.DeveloperID,
		Name:             s.Name,
		Description:      s.Description,
		ShortDescription: s.ShortDescription,
		Category:         s.Category,
		Tags:             datatypes.NewJSONSlice(s.Tags),
		Price:            s.Price,
		IconURL:          s.IconURL,
		Screenshots:      datatypes.NewJSONSlice(s.Screenshots),
		Features:         datatypes.NewJSONSlice(s.Features),
		Version:          s.Version,
		Status:           string(s.Status),
		SubmissionDate:   s.SubmissionDate,
		Metadata: datatypes.NewJSONType(MetadataColumn{
			RepositoryURL: s.Metadata.RepositoryURL,
			GitRef:        bc.GitRef,
			ContextDir:    bc.ContextDir,
			Dockerfile:    bc.Dockerfile,
			BuildCommand:  bc.BuildCommand,
			Env:           bc.Env,
		}),
		BinaryURL:   s.BinaryURL,
		LastUpdated: s.LastUpdated,
	}
}

func modelToSubmission(m *AppSubmissionModel) *domain.AppSubmission {
	meta := m.Metadata.Data()
	return &domain.AppSubmission{
		ID:               m.ID,
		DeveloperID:      m.DeveloperID,
		Name:             m.Name,
		Description:      m.Description,
		ShortDescription: m.ShortDescription,
		Category:         m.Category,
		Tags:             nonNilSlice(m.Tags),
		Price:            m.Price,
		IconURL:          m.IconURL,
		Screenshots:      nonNilSlice(m.Screenshots),
		Features:         nonNilSlice(m.Features),
		Version:          m.Version,
		Status:           domain.SubmissionStatus(m.Status),
		SubmissionDate:   m.SubmissionDate,
		Metadata: domain.SubmissionMetadata{
			RepositoryURL: meta.RepositoryURL,
			BuildConfig: domain.BuildConfig{
				GitRef:       meta.GitRef,
				ContextDir:   meta.ContextDir,
				Dockerfile:   meta.Dockerfile,
				BuildCommand: meta.BuildCommand,
				Env:          meta.Env,
			},
		},
		BinaryURL:   m.BinaryURL,
		LastUpdated: m.LastUpdated,
	}
}

func nonNilSlice(s datatypes.JSONSlice[string]) []string {
	if s == nil {
		return []string{}
	}
	return []string(s)
}
