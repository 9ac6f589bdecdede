package domain

import "time"

// SubmissionStatus 是 AppSubmission 的审核状态。
// 状态流转：Pending → PendingReview → (Approved | Rejected)，后两者由审核流程推进。
type SubmissionStatus string

const (
	SubmissionStatusPending       SubmissionStatus = "pending"
	SubmissionStatusPendingReview SubmissionStatus = "pending_review"
	SubmissionStatusApproved      SubmissionStatus = "approved"
	SubmissionStatusRejected      SubmissionStatus = "rejected"
)

// BuildConfig 描述如何从仓库构建应用产物。
type BuildConfig struct {
	GitRef       string            `json:"git_ref,omitempty"`     // branch / tag / commit
	ContextDir   string            `json:"context_dir,omitempty"` // 构建上下文子目录
	Dockerfile   string            `json:"dockerfile,omitempty"`
	BuildCommand string            `json:"build_command,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

const (
	DefaultGitRef     = "main"
	DefaultContextDir = "."
	DefaultDockerfile = "Dockerfile"
)

// WithDefaults 返回补全默认值后的副本。
func (c BuildConfig) WithDefaults() BuildConfig {
	if c.GitRef == "" {
		c.GitRef = DefaultGitRef
	}
	if c.ContextDir == "" {
		c.ContextDir = DefaultContextDir
	}
	if c.Dockerfile == "" {
		c.Dockerfile = DefaultDockerfile
	}
	return c
}

type SubmissionMetadata struct {
	RepositoryURL string      `json:"repository_url"`
	BuildConfig   BuildConfig `json:"build_config"`
}

// AppSubmission 代表开发者的一次上架申请。
// 唯一约束：DeveloperID + Name 组合唯一，重复提交会被拒绝而不是覆盖。
type AppSubmission struct {
	ID               string             `json:"id"`
	DeveloperID      string             `json:"developer_id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	ShortDescription string             `json:"short_description"`
	Category         string             `json:"category"`
	Tags             []string           `json:"tags"`
	Price            float64            `json:"price"`
	IconURL          string             `json:"icon_url"`
	Screenshots      []string           `json:"screenshots"`
	Features         []string           `json:"features"`
	Version          string             `json:"version"`
	Status           SubmissionStatus   `json:"status"`
	SubmissionDate   time.Time          `json:"submission_date"`
	Metadata         SubmissionMetadata `json:"metadata"`
	BinaryURL        string             `json:"binary_url,omitempty"`
	LastUpdated      time.Time          `json:"last_updated"`
}

// SubmissionFields 是调用方提交的表单字段，服务端字段（id、status、时间）不在其中。
type SubmissionFields struct {
	DeveloperID      string      `json:"developer_id" validate:"required,notblank"`
	Name             string      `json:"name" validate:"required,notblank"`
	Description      string      `json:"description" validate:"required,notblank"`
	ShortDescription string      `json:"short_description" validate:"required,notblank"`
	Category         string      `json:"category" validate:"required,notblank"`
	Tags             []string    `json:"tags"`
	Price            float64     `json:"price" validate:"gte=0"`
	IconURL          string      `json:"icon_url" validate:"required,notblank"`
	Screenshots      []string    `json:"screenshots"`
	Features         []string    `json:"features"`
	Version          string      `json:"version"`
	BuildConfig      BuildConfig `json:"build_config"`
}

const DefaultVersion = "1.0.0"
