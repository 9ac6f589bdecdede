package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
)

// ProgressFunc 接收 0-100 的整体进度，保证单调不减。
type ProgressFunc func(pct int)

// 流水线阶段
const (
	stageValidating       = "validating"
	stageAuthorizing      = "authorizing"
	stageCreating         = "creating"
	stageBuilding         = "building"
	stageProcessingAssets = "processing_assets"
	stageFinalizing       = "finalizing"
	stageDone             = "done"
	stageFailed           = "failed"
)

// 进度检查点。构建与素材阶段共享一条 0-100 的子进度，映射到 20-90 区间：
// reported = 20 + sub*0.7，其中构建占子进度 0-80，素材登记占 80-100。
const (
	progressStart      = 0
	progressAuthorized = 10
	progressCreated    = 20
	progressAssetsDone = 90
	progressDone       = 100

	subBuildShare = 80
)

func subToReported(sub int) int {
	return progressCreated + clampProgress(sub)*7/10
}

type PublishServiceDeps struct {
	Submissions port.SubmissionRepository
	Jobs        port.ProcessingJobRepository
	Profiles    port.DeveloperProfileRepository
	Assets      port.AssetRepository
	Identity    port.IdentityProvider
	Builder     port.Builder

	// 以下可选
	Sink            port.EventSink
	LogSource       port.BuildLogSource
	LogQuerier      port.LogQuerier
	BuildNamespace  string
	Logger          *slog.Logger
	EventBufferSize int
	FlushTimeout    time.Duration
}

// PublishService 编排上架流水线：校验 → 授权 → 建档 → 构建 → 素材 → 定稿。
type PublishService struct {
	validator   *Validator
	authorizer  *Authorizer
	submissions *SubmissionStore
	jobs        *JobTracker
	jobRepo     port.ProcessingJobRepository
	assets      *AssetProcessor
	builder     port.Builder

	sink           port.EventSink
	logSource      port.BuildLogSource
	logQuerier     port.LogQuerier
	buildNamespace string
	logger         *slog.Logger
	bufferSize     int
	flushTimeout   time.Duration
}

func NewPublishService(deps PublishServiceDeps) *PublishService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishService{
		validator:      NewValidator(),
		authorizer:     NewAuthorizer(deps.Identity, deps.Profiles),
		submissions:    NewSubmissionStore(deps.Submissions),
		jobs:           NewJobTracker(deps.Jobs),
		jobRepo:        deps.Jobs,
		assets:         NewAssetProcessor(deps.Assets),
		builder:        deps.Builder,
		sink:           deps.Sink,
		logSource:      deps.LogSource,
		logQuerier:     deps.LogQuerier,
		buildNamespace: deps.BuildNamespace,
		logger:         logger.With("module", "publish-service"),
		bufferSize:     deps.EventBufferSize,
		flushTimeout:   deps.FlushTimeout,
	}
}

// PublishApp 执行一次完整的上架流水线，成功时返回重新读取的提交记录。
// 提交记录写入之后的失败会保留记录并把 job 标记为 failed，不做回滚。
func (s *PublishService) PublishApp(ctx context.Context, fields domain.SubmissionFields, repositoryURL string, onProgress ProgressFunc) (*domain.AppSubmission, error) {
	r := s.newRun(ctx, onProgress)
	defer r.close()

	r.enter(stageValidating, nil)
	r.report(progressStart)
	if err := s.validator.Validate(fields, repositoryURL); err != nil {
		return nil, r.fail(err)
	}

	r.enter(stageAuthorizing, map[string]any{"developer_id": fields.DeveloperID})
	if _, err := s.authorizer.Authorize(ctx, fields.DeveloperID); err != nil {
		return nil, r.fail(err)
	}
	r.report(progressAuthorized)

	// 开始写库之后流水线不再响应调用方取消，保证 job 一定落到 completed 或 failed。
	ctx = context.WithoutCancel(ctx)

	r.enter(stageCreating, map[string]any{"name": fields.Name})
	sub, err := s.submissions.Create(ctx, fields, repositoryURL)
	if err != nil {
		return nil, r.fail(err)
	}
	r.setSubmission(sub.ID)
	job, err := s.jobs.EnsureJob(ctx, sub.ID)
	if err != nil {
		return nil, r.fail(err)
	}
	r.report(progressCreated)

	final, err := s.process(ctx, r, sub, job)
	if err != nil {
		if markErr := s.jobs.SetStatus(ctx, job.ID, domain.JobStatusFailed, r.current(), err.Error()); markErr != nil {
			s.logger.Warn("failed to mark processing job as failed",
				"submission_id", sub.ID, "job_id", job.ID, "error", markErr)
		}
		return nil, r.fail(err)
	}
	r.enter(stageDone, map[string]any{"binary_url": final.BinaryURL})
	s.logger.Info("app submission ready for review",
		"event", "submission_pending_review",
		"submission_id", final.ID,
		"developer_id", final.DeveloperID,
	)
	return final, nil
}

// process 执行提交记录已存在之后的阶段，返回的错误都是 ProcessingError。
func (s *PublishService) process(ctx context.Context, r *run, sub *domain.AppSubmission, job *domain.ProcessingJob) (*domain.AppSubmission, error) {
	r.enter(stageBuilding, map[string]any{"repository_url": sub.Metadata.RepositoryURL})
	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobStatusProcessing, 0, ""); err != nil {
		return nil, err
	}
	result, err := s.builder.Build(ctx, port.BuildRequest{
		SubmissionID:  sub.ID,
		RepositoryURL: sub.Metadata.RepositoryURL,
		Config:        sub.Metadata.BuildConfig,
		Progress: func(pct int) {
			r.report(subToReported(clampProgress(pct) * subBuildShare / 100))
		},
	})
	if err != nil {
		return nil, domain.NewProcessingError("build failed: "+err.Error(), err)
	}
	if result == nil {
		return nil, domain.NewProcessingError("build failed: builder returned no result", nil)
	}
	r.report(subToReported(subBuildShare))
	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobStatusProcessing, r.current(), ""); err != nil {
		return nil, err
	}

	urls := mergeAssetURLs(sub.Screenshots, result.Assets)
	r.enter(stageProcessingAssets, map[string]any{"count": len(urls)})
	err = s.assets.RegisterAssets(ctx, sub, urls, func(done, total int) {
		r.report(subToReported(subBuildShare + (100-subBuildShare)*done/total))
	})
	if err != nil {
		return nil, err
	}
	r.report(progressAssetsDone)
	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobStatusProcessing, progressAssetsDone, ""); err != nil {
		return nil, err
	}

	r.enter(stageFinalizing, nil)
	if err := s.submissions.MarkPendingReview(ctx, sub, result.BinaryURL); err != nil {
		return nil, domain.NewProcessingError("failed to finalize app submission", err)
	}
	// 先读回再标记 completed：读回失败时 job 仍可转为 failed。
	final, err := s.submissions.GetByID(ctx, sub.ID)
	if err != nil {
		return nil, domain.NewProcessingError("failed to read back app submission", err)
	}
	if final == nil {
		return nil, domain.NewProcessingError("app submission disappeared during finalize", domain.ErrSubmissionNotFound)
	}
	if err := s.jobs.SetStatus(ctx, job.ID, domain.JobStatusCompleted, progressDone, ""); err != nil {
		return nil, err
	}
	r.reportFinal(progressDone)
	return final, nil
}

// GetAppSubmission 记录不存在时返回 nil, nil。
func (s *PublishService) GetAppSubmission(ctx context.Context, id string) (*domain.AppSubmission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) || isPermissionMessage(err) {
			return nil, translateStoreError(err)
		}
		return nil, domain.NewPublishingError(domain.CodeRetrievalFailed,
			"failed to retrieve app submission", map[string]any{"original": err.Error()}).WithCause(err)
	}
	return sub, nil
}

// GetAppSubmissions 读取失败时记录日志并返回空列表。
func (s *PublishService) GetAppSubmissions(ctx context.Context, developerID string) []*domain.AppSubmission {
	subs, err := s.submissions.ListByDeveloper(ctx, developerID)
	if err != nil {
		s.logger.Error("failed to list app submissions", "developer_id", developerID, "error", err)
		return []*domain.AppSubmission{}
	}
	return subs
}

func (s *PublishService) GetProcessingJob(ctx context.Context, submissionID string) (*domain.ProcessingJob, error) {
	return s.jobRepo.FindBySubmission(ctx, submissionID)
}

func (s *PublishService) ListAssets(ctx context.Context, submissionID string) ([]*domain.AppAsset, error) {
	if _, err := s.requireSubmission(ctx, submissionID); err != nil {
		return nil, err
	}
	return s.assets.ListAssets(ctx, submissionID)
}

// GetBuildLogs 获取构建日志。三级降级：构建容器日志 → Loki → job.error_message。
func (s *PublishService) GetBuildLogs(ctx context.Context, submissionID string) (string, error) {
	sub, err := s.requireSubmission(ctx, submissionID)
	if err != nil {
		return "", err
	}
	job, err := s.jobRepo.FindBySubmission(ctx, submissionID)
	if err != nil {
		return "", err
	}
	if job.Status == domain.JobStatusPending {
		return "", nil
	}

	if s.logSource != nil {
		logs, err := s.logSource.GetLogs(ctx, submissionID)
		if err != nil {
			s.logger.Warn("failed to get build pod logs, trying loki", "submission_id", submissionID, "error", err)
		} else if logs != "" {
			return logs, nil
		}
	}

	if s.logQuerier != nil {
		start := sub.SubmissionDate.Add(-1 * time.Minute)
		end := job.UpdatedAt.Add(5 * time.Minute)
		logs, err := s.logQuerier.QueryBuildLogs(ctx, s.buildNamespace, submissionID, start, end)
		if err != nil {
			s.logger.Warn("failed to get loki logs, falling back to job error", "submission_id", submissionID, "error", err)
		} else if logs != "" {
			return logs, nil
		}
	}

	return job.ErrorMessage, nil
}

func (s *PublishService) requireSubmission(ctx context.Context, id string) (*domain.AppSubmission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

// mergeAssetURLs 合并截图与构建产出的素材，按首次出现去重。
func mergeAssetURLs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, u := range list {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// run 保存单次 PublishApp 调用的进度与事件状态。
type run struct {
	svc        *PublishService
	ctx        context.Context
	queue      *eventQueue
	onProgress ProgressFunc

	mu           sync.Mutex
	submissionID string
	stage        string
	last         int
}

func (s *PublishService) newRun(ctx context.Context, onProgress ProgressFunc) *run {
	return &run{
		svc:        s,
		ctx:        context.WithoutCancel(ctx),
		queue:      newEventQueue(s.bufferSize, s.flushTimeout, s.logger),
		onProgress: onProgress,
		last:       -1,
	}
}

func (r *run) setSubmission(id string) {
	r.mu.Lock()
	r.submissionID = id
	r.mu.Unlock()
}

func (r *run) current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last < 0 {
		return 0
	}
	return r.last
}

func (r *run) enter(stage string, details map[string]any) {
	r.mu.Lock()
	r.stage = stage
	id := r.submissionID
	r.mu.Unlock()

	e := port.StepEvent{SubmissionID: id, Step: stage, Timestamp: time.Now().UTC(), Details: details}
	r.svc.logger.Debug("pipeline step", "submission_id", id, "step", stage)
	if sink := r.svc.sink; sink != nil {
		r.queue.push(func() { sink.Step(r.ctx, e) })
	}
}

// report 丢弃不高于上次的值，保证观察者看到的进度严格递增。
func (r *run) report(pct int) {
	r.emit(pct, false)
}

func (r *run) reportFinal(pct int) {
	r.emit(pct, true)
}

func (r *run) emit(pct int, final bool) {
	pct = clampProgress(pct)
	r.mu.Lock()
	if pct <= r.last {
		r.mu.Unlock()
		return
	}
	r.last = pct
	e := port.ProgressEvent{SubmissionID: r.submissionID, Step: r.stage, Progress: pct}
	r.mu.Unlock()

	push := r.queue.push
	if final {
		push = r.queue.pushWait
	}
	if cb := r.onProgress; cb != nil {
		push(func() { cb(pct) })
	}
	if sink := r.svc.sink; sink != nil {
		push(func() { sink.Progress(r.ctx, e) })
	}
}

// fail 记录失败事件并保证返回 *domain.Error。
func (r *run) fail(err error) error {
	r.mu.Lock()
	stage := r.stage
	id := r.submissionID
	r.mu.Unlock()

	e := domain.Classify(err)
	if id != "" && e.Kind != domain.KindProcessing && e.Code == domain.CodeUnknown {
		// 提交记录已存在，未分类错误归入处理阶段
		e = domain.NewProcessingError(fmt.Sprintf("%s failed: %v", stage, err), err)
	}
	r.svc.logger.Warn("publish pipeline failed",
		"event", "publish_failed",
		"submission_id", id,
		"step", stage,
		"kind", e.Kind.String(),
		"code", string(e.Code),
		"error", e.Message,
	)
	r.enter(stageFailed, map[string]any{"step": stage, "code": string(e.Code), "message": e.Message})
	return e
}

func (r *run) close() {
	r.queue.close()
}
