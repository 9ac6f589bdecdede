package domain

import "time"

type AssetType string

const (
	AssetTypeScreenshot AssetType = "screenshot"
	AssetTypeIcon       AssetType = "icon"
)

type AssetStatus string

const (
	AssetStatusPending   AssetStatus = "pending"
	AssetStatusProcessed AssetStatus = "processed"
	AssetStatusFailed    AssetStatus = "failed"
)

// AppAsset 是一条待转码的素材记录，转码本身由下游完成。
type AppAsset struct {
	ID              string      `json:"id"`
	AppSubmissionID string      `json:"app_submission_id"`
	AssetType       AssetType   `json:"asset_type"`
	OriginalURL     string      `json:"original_url"`
	Status          AssetStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}
