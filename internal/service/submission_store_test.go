package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionStore_CreateForcesServerFields(t *testing.T) {
	repo := newMemSubmissionRepo()
	store := NewSubmissionStore(repo)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	sub, err := store.Create(context.Background(), fooFields(), fooRepo)
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, domain.SubmissionStatusPending, sub.Status)
	assert.Equal(t, fixed, sub.SubmissionDate)
	assert.Equal(t, domain.DefaultVersion, sub.Version)
	assert.Equal(t, fooRepo, sub.Metadata.RepositoryURL)
	assert.Equal(t, domain.DefaultGitRef, sub.Metadata.BuildConfig.GitRef)
	assert.NotNil(t, sub.Tags)
	assert.Equal(t, 1, repo.count())
}

func TestSubmissionStore_CreateDuplicate(t *testing.T) {
	store := NewSubmissionStore(newMemSubmissionRepo())
	_, err := store.Create(context.Background(), fooFields(), fooRepo)
	require.NoError(t, err)

	_, err = store.Create(context.Background(), fooFields(), fooRepo)
	assert.True(t, domain.HasCode(err, domain.CodeDuplicateAppName), "got %v", err)
}

func TestSubmissionStore_CreateStoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode domain.Code
	}{
		{"row level security", errors.New("new row violates row-level security policy for table app_submissions"), domain.CodePermissionError},
		{"permission sentinel", domain.ErrPermissionDenied, domain.CodePermissionError},
		{"anything else", errors.New("disk full"), domain.CodeSubmissionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemSubmissionRepo()
			repo.saveErr = tt.err
			_, err := NewSubmissionStore(repo).Create(context.Background(), fooFields(), fooRepo)
			assert.True(t, domain.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestSubmissionStore_AbsenceIsNotAnError(t *testing.T) {
	store := NewSubmissionStore(newMemSubmissionRepo())

	sub, err := store.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, sub)

	subs, err := store.ListByDeveloper(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestSubmissionStore_MarkPendingReview(t *testing.T) {
	repo := newMemSubmissionRepo()
	store := NewSubmissionStore(repo)
	sub, err := store.Create(context.Background(), fooFields(), fooRepo)
	require.NoError(t, err)

	require.NoError(t, store.MarkPendingReview(context.Background(), sub, "https://cdn/bin"))

	got, err := store.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusPendingReview, got.Status)
	assert.Equal(t, "https://cdn/bin", got.BinaryURL)
}
