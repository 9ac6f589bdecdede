package service

import (
	"context"
	"testing"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetProcessor_RegisterAssets(t *testing.T) {
	repo := &memAssetRepo{}
	p := NewAssetProcessor(repo)
	sub := &domain.AppSubmission{ID: "sub-1"}

	var progress [][2]int
	err := p.RegisterAssets(context.Background(), sub, []string{"https://x/1.png", "https://x/2.png"}, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	assets, err := p.ListAssets(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "https://x/1.png", assets[0].OriginalURL)
	assert.Equal(t, domain.AssetTypeScreenshot, assets[0].AssetType)
	assert.Equal(t, domain.AssetStatusPending, assets[0].Status)
	assert.NotEqual(t, assets[0].ID, assets[1].ID)
}

func TestAssetProcessor_NoScreenshots(t *testing.T) {
	p := NewAssetProcessor(&memAssetRepo{})
	require.NoError(t, p.RegisterAssets(context.Background(), &domain.AppSubmission{ID: "sub-1"}, nil, nil))

	assets, err := p.ListAssets(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestAssetProcessor_StopsAtFirstFailure(t *testing.T) {
	repo := &memAssetRepo{failAt: 2}
	p := NewAssetProcessor(repo)

	err := p.RegisterAssets(context.Background(), &domain.AppSubmission{ID: "sub-1"},
		[]string{"https://x/1.png", "https://x/2.png", "https://x/3.png"}, nil)
	assert.True(t, domain.IsProcessing(err), "got %v", err)
	assert.Equal(t, 2, repo.calls)
	assert.Len(t, repo.rows, 1)
}

func TestMergeAssetURLs(t *testing.T) {
	got := mergeAssetURLs([]string{"a", "b", ""}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Nil(t, mergeAssetURLs(nil, nil))
}
