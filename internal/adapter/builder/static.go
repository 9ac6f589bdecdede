package builder

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aiverse-platform/publish-engine/internal/port"
)

var _ port.Builder = (*StaticBuilder)(nil)

// StaticBuilder 不做真正的构建，直接返回 baseURL/<submission_id> 作为产物地址。
// 用于本地开发和没有 Kubernetes 集群的环境。
type StaticBuilder struct {
	baseURL string
	assets  []string
}

func NewStaticBuilder(baseURL string, assets ...string) *StaticBuilder {
	return &StaticBuilder{baseURL: strings.TrimRight(baseURL, "/"), assets: assets}
}

func (b *StaticBuilder) Build(ctx context.Context, req port.BuildRequest) (*port.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.SubmissionID == "" {
		return nil, fmt.Errorf("static builder: submission id is required")
	}
	if req.Progress != nil {
		req.Progress(0)
		req.Progress(100)
	}
	assets := make([]string, len(b.assets))
	copy(assets, b.assets)
	return &port.BuildResult{
		BinaryURL: b.baseURL + "/" + url.PathEscape(req.SubmissionID),
		Assets:    assets,
	}, nil
}
