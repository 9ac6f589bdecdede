package loki

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/port"
)

const (
	defaultLimit   = 5000
	maxErrorBody   = 512
	kanikoPodLabel = "kaniko"
)

var _ port.LogQuerier = (*Client)(nil)

// Client 通过 Loki HTTP API 查询已被回收的构建 Pod 日志。
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
}

type Option func(*Client)

// WithLimit 覆盖单次查询返回的最大行数。
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limit:      defaultLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryBuildLogs 查询某次提交的构建 Pod 日志。
// Pod 名称以 Job 名称为前缀，Job 名称为 "publish-" 加去掉 "-" 的 submission ID。
func (c *Client) QueryBuildLogs(ctx context.Context, namespace, submissionID string, start, end time.Time) (string, error) {
	params := url.Values{
		"query":     {buildLogQuery(namespace, submissionID)},
		"start":     {strconv.FormatInt(start.UnixNano(), 10)},
		"end":       {strconv.FormatInt(end.UnixNano(), 10)},
		"direction": {"forward"},
		"limit":     {strconv.Itoa(c.limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/loki/api/v1/query_range?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("loki: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("loki: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return "", fmt.Errorf("loki: unexpected status %d: %s", resp.StatusCode, msg)
		}
		return "", fmt.Errorf("loki: unexpected status %d", resp.StatusCode)
	}

	var result queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("loki: decode response: %w", err)
	}
	if result.Status != "success" {
		return "", fmt.Errorf("loki: query status %q", result.Status)
	}
	return result.Data.text(), nil
}

func buildLogQuery(namespace, submissionID string) string {
	podPrefix := "publish-" + strings.ReplaceAll(submissionID, "-", "")
	return fmt.Sprintf(`{namespace=%q, pod=~%q, container=%q}`, namespace, podPrefix+"-.*", kanikoPodLabel)
}

type queryRangeResponse struct {
	Status string         `json:"status"`
	Data   queryRangeData `json:"data"`
}

type queryRangeData struct {
	ResultType string   `json:"resultType"`
	Result     []stream `json:"result"`
}

type stream struct {
	Values [][]string `json:"values"` // [[timestamp_ns, line], ...]
}

type logLine struct {
	ts   int64
	text string
}

// text 合并所有 stream 的日志行，按纳秒时间戳稳定排序；时间戳无法解析的行排在最前。
func (d queryRangeData) text() string {
	var lines []logLine
	for _, s := range d.Result {
		for _, v := range s.Values {
			if len(v) < 2 {
				continue
			}
			ts, _ := strconv.ParseInt(v[0], 10, 64)
			lines = append(lines, logLine{ts: ts, text: v[1]})
		}
	}
	slices.SortStableFunc(lines, func(a, b logLine) int { return cmp.Compare(a.ts, b.ts) })

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(strings.TrimRight(l.text, "\n"))
		b.WriteByte('\n')
	}
	return b.String()
}
