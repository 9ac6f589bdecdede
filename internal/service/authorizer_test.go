package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizer(t *testing.T) {
	profiles := &stubProfileRepo{profiles: map[string]*domain.DeveloperProfile{
		"dev1":      {ID: "dev1", UserID: "user1", PaymentStatus: domain.PaymentStatusActive},
		"dev2":      {ID: "dev2", UserID: "user2", PaymentStatus: domain.PaymentStatusActive},
		"suspended": {ID: "suspended", UserID: "user1", PaymentStatus: domain.PaymentStatusSuspended},
	}}

	tests := []struct {
		name        string
		userID      string
		developerID string
		wantCode    domain.Code
	}{
		{"owner with active profile", "user1", "dev1", ""},
		{"unauthenticated", "", "dev1", domain.CodePermissionDenied},
		{"missing profile", "user1", "ghost", domain.CodeProfileNotFound},
		{"someone else's profile", "user1", "dev2", domain.CodePermissionDenied},
		{"payment not active", "user1", "suspended", domain.CodeInactiveAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthorizer(&stubIdentity{userID: tt.userID}, profiles)
			profile, err := a.Authorize(context.Background(), tt.developerID)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.developerID, profile.ID)
				return
			}
			assert.True(t, domain.HasCode(err, tt.wantCode), "got %v", err)
			assert.Nil(t, profile)
		})
	}
}

func TestAuthorizer_StorePermissionDenied(t *testing.T) {
	profiles := &stubProfileRepo{err: errors.New(`ERROR: permission denied for table developer_profiles`)}
	a := NewAuthorizer(&stubIdentity{userID: "user1"}, profiles)

	_, err := a.Authorize(context.Background(), "dev1")
	assert.True(t, domain.HasCode(err, domain.CodePermissionError), "got %v", err)
}

func TestAuthorizer_UnknownStoreError(t *testing.T) {
	profiles := &stubProfileRepo{err: errors.New("dial tcp: i/o timeout")}
	a := NewAuthorizer(&stubIdentity{userID: "user1"}, profiles)

	_, err := a.Authorize(context.Background(), "dev1")
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnknown, e.Code)
	assert.Equal(t, "dial tcp: i/o timeout", e.Details["original"])
}
