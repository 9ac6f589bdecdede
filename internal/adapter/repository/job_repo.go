package repository

import (
	"context"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"gorm.io/gorm"
)

var _ port.ProcessingJobRepository = (*JobRepo)(nil)

type JobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Save(ctx context.Context, job *domain.ProcessingJob) error {
	return translate(r.db.WithContext(ctx).Create(jobToModel(job)).Error, nil)
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	var m ProcessingJobModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrJobNotFound)
	}
	return modelToJob(&m), nil
}

func (r *JobRepo) FindBySubmission(ctx context.Context, submissionID string) (*domain.ProcessingJob, error) {
	var m ProcessingJobModel
	if err := r.db.WithContext(ctx).First(&m, "app_submission_id = ?", submissionID).Error; err != nil {
		return nil, translate(err, domain.ErrJobNotFound)
	}
	return modelToJob(&m), nil
}

func (r *JobRepo) Update(ctx context.Context, job *domain.ProcessingJob) error {
	return translate(r.db.WithContext(ctx).Save(jobToModel(job)).Error, nil)
}

func jobToModel(j *domain.ProcessingJob) *ProcessingJobModel {
	return &ProcessingJobModel{
		ID:              j.ID,
		AppSubmissionID: j.AppSubmissionID,
		Status:          string(j.Status),
		Progress:        j.Progress,
		ErrorMessage:    j.ErrorMessage,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func modelToJob(m *ProcessingJobModel) *domain.ProcessingJob {
	return &domain.ProcessingJob{
		ID:              m.ID,
		AppSubmissionID: m.AppSubmissionID,
		Status:          domain.JobStatus(m.Status),
		Progress:        m.Progress,
		ErrorMessage:    m.ErrorMessage,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
