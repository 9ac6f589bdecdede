package repository

import (
	"time"

	"gorm.io/datatypes"
)

// AppSubmissionModel 是 AppSubmission 的数据库持久化模型。
type AppSubmissionModel struct {
	ID               string `gorm:"primaryKey"`
	DeveloperID      string `gorm:"uniqueIndex:idx_developer_app_name;index"`
	Name             string `gorm:"uniqueIndex:idx_developer_app_name"`
	Description      string `gorm:"type:text"`
	ShortDescription string
	Category         string
	Tags             datatypes.JSONSlice[string]
	Price            float64
	IconURL          string
	Screenshots      datatypes.JSONSlice[string]
	Features         datatypes.JSONSlice[string]
	Version          string
	Status           string `gorm:"index"`
	SubmissionDate   time.Time
	Metadata         datatypes.JSONType[MetadataColumn]
	BinaryURL        string
	LastUpdated      time.Time
}

func (AppSubmissionModel) TableName() string { return "app_submissions" }

// MetadataColumn 是 metadata 列的 JSON 结构。
type MetadataColumn struct {
	RepositoryURL string            `json:"repository_url"`
	GitRef        string            `json:"git_ref,omitempty"`
	ContextDir    string            `json:"context_dir,omitempty"`
	Dockerfile    string            `json:"dockerfile,omitempty"`
	BuildCommand  string            `json:"build_command,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// ProcessingJobModel 是 ProcessingJob 的数据库持久化模型，每个提交至多一条。
type ProcessingJobModel struct {
	ID              string `gorm:"primaryKey"`
	AppSubmissionID string `gorm:"uniqueIndex"`
	Status          string
	Progress        int
	ErrorMessage    string `gorm:"type:text"`
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ProcessingJobModel) TableName() string { return "processing_jobs" }

// DeveloperProfileModel 由账户服务维护，这里只读。
type DeveloperProfileModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"index"`
	PaymentStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (DeveloperProfileModel) TableName() string { return "developer_profiles" }

// AppAssetModel 是 AppAsset 的数据库持久化模型。
type AppAssetModel struct {
	ID              string `gorm:"primaryKey"`
	AppSubmissionID string `gorm:"index"`
	AssetType       string
	OriginalURL     string
	Status          string
	CreatedAt       time.Time
}

func (AppAssetModel) TableName() string { return "app_assets" }
