package port

import (
	"context"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
)

// BuildProgressFunc 接收构建阶段的子进度（0-100）。
type BuildProgressFunc func(pct int)

type BuildRequest struct {
	SubmissionID  string
	RepositoryURL string
	Config        domain.BuildConfig
	// Progress 可为 nil。
	Progress BuildProgressFunc
}

type BuildResult struct {
	BinaryURL string   `json:"binary_url"`
	Assets    []string `json:"assets"`
}

// Builder 负责把仓库引用构建为可部署产物：clone、校验结构、安装依赖、
// 执行构建命令、收集产物并上传，返回稳定的 BinaryURL。
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildLogSource 读取构建容器的实时日志。
type BuildLogSource interface {
	GetLogs(ctx context.Context, submissionID string) (string, error)
}

// LogQuerier 查询历史构建日志（如 Loki）。
type LogQuerier interface {
	QueryBuildLogs(ctx context.Context, namespace, submissionID string, start, end time.Time) (string, error)
}
