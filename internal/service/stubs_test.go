package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/port"
)

// --- in-memory stores ---

type memSubmissionRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.AppSubmission
	saveErr   error
	updateErr error
	findErr   error
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{rows: make(map[string]domain.AppSubmission)}
}

func (r *memSubmissionRepo) Save(ctx context.Context, s *domain.AppSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, row := range r.rows {
		if row.DeveloperID == s.DeveloperID && row.Name == s.Name {
			return domain.ErrAlreadyExists
		}
	}
	r.rows[s.ID] = *s
	return nil
}

func (r *memSubmissionRepo) FindByID(ctx context.Context, id string) (*domain.AppSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return &row, nil
}

func (r *memSubmissionRepo) FindByDeveloper(_ context.Context, developerID string) ([]*domain.AppSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*domain.AppSubmission
	for _, row := range r.rows {
		if row.DeveloperID == developerID {
			row := row
			out = append(out, &row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionDate.After(out[j].SubmissionDate) })
	return out, nil
}

func (r *memSubmissionRepo) Update(ctx context.Context, s *domain.AppSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.rows[s.ID] = *s
	return nil
}

func (r *memSubmissionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memJobRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.ProcessingJob
	updateErr error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{rows: make(map[string]domain.ProcessingJob)}
}

func (r *memJobRepo) Save(ctx context.Context, job *domain.ProcessingJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AppSubmissionID == job.AppSubmissionID {
			return domain.ErrAlreadyExists
		}
	}
	r.rows[job.ID] = *job
	return nil
}

func (r *memJobRepo) FindByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &row, nil
}

func (r *memJobRepo) FindBySubmission(ctx context.Context, submissionID string) (*domain.ProcessingJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.AppSubmissionID == submissionID {
			row := row
			return &row, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (r *memJobRepo) Update(ctx context.Context, job *domain.ProcessingJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.rows[job.ID] = *job
	return nil
}

type memAssetRepo struct {
	mu     sync.Mutex
	rows   []domain.AppAsset
	failAt int // 第 failAt 次插入失败（从 1 开始），0 表示不失败
	calls  int
}

func (r *memAssetRepo) Save(_ context.Context, a *domain.AppAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failAt > 0 && r.calls == r.failAt {
		return errors.New("insert app_assets: connection lost")
	}
	r.rows = append(r.rows, *a)
	return nil
}

func (r *memAssetRepo) FindBySubmission(_ context.Context, submissionID string) ([]*domain.AppAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AppAsset
	for i := range r.rows {
		if r.rows[i].AppSubmissionID == submissionID {
			a := r.rows[i]
			out = append(out, &a)
		}
	}
	return out, nil
}

type stubProfileRepo struct {
	profiles map[string]*domain.DeveloperProfile
	err      error
	calls    int
}

func (s *stubProfileRepo) FindByID(_ context.Context, id string) (*domain.DeveloperProfile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

type stubIdentity struct {
	userID string
	calls  int
}

func (s *stubIdentity) CurrentUserID(_ context.Context) (string, error) {
	s.calls++
	if s.userID == "" {
		return "", domain.ErrPermissionDenied
	}
	return s.userID, nil
}

// --- builder doubles ---

type stubBuilder struct {
	result   *port.BuildResult
	err      error
	progress []int
	lastReq  port.BuildRequest
	onBuild  func()
}

func (b *stubBuilder) Build(_ context.Context, req port.BuildRequest) (*port.BuildResult, error) {
	b.lastReq = req
	if b.onBuild != nil {
		b.onBuild()
	}
	for _, p := range b.progress {
		if req.Progress != nil {
			req.Progress(p)
		}
	}
	return b.result, b.err
}

// --- event sink ---

type recordingSink struct {
	mu       sync.Mutex
	steps    []string
	progress []int
}

func (s *recordingSink) Step(_ context.Context, e port.StepEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, e.Step)
}

func (s *recordingSink) Progress(_ context.Context, e port.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, e.Progress)
}

// --- fixture ---

type fixture struct {
	submissions *memSubmissionRepo
	jobs        *memJobRepo
	assets      *memAssetRepo
	profiles    *stubProfileRepo
	identity    *stubIdentity
	builder     *stubBuilder
	sink        *recordingSink
	svc         *PublishService
}

func newFixture() *fixture {
	f := &fixture{
		submissions: newMemSubmissionRepo(),
		jobs:        newMemJobRepo(),
		assets:      &memAssetRepo{},
		profiles: &stubProfileRepo{profiles: map[string]*domain.DeveloperProfile{
			"dev1":     {ID: "dev1", UserID: "user1", PaymentStatus: domain.PaymentStatusActive},
			"dev2":     {ID: "dev2", UserID: "user2", PaymentStatus: domain.PaymentStatusActive},
			"inactive": {ID: "inactive", UserID: "user1", PaymentStatus: domain.PaymentStatusInactive},
		}},
		identity: &stubIdentity{userID: "user1"},
		builder:  &stubBuilder{result: &port.BuildResult{BinaryURL: "https://cdn/bin", Assets: []string{}}},
		sink:     &recordingSink{},
	}
	f.svc = NewPublishService(PublishServiceDeps{
		Submissions:  f.submissions,
		Jobs:         f.jobs,
		Profiles:     f.profiles,
		Assets:       f.assets,
		Identity:     f.identity,
		Builder:      f.builder,
		Sink:         f.sink,
		FlushTimeout: time.Second,
	})
	return f
}

func fooFields() domain.SubmissionFields {
	return domain.SubmissionFields{
		Name:             "Foo",
		Description:      "d",
		ShortDescription: "s",
		Category:         "Text & Writing",
		IconURL:          "https://x/i.png",
		DeveloperID:      "dev1",
	}
}

const fooRepo = "https://github.com/a/b"
