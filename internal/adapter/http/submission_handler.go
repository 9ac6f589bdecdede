package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/aiverse-platform/publish-engine/internal/service"
	"github.com/go-chi/chi/v5"
)

const ndjsonContentType = "application/x-ndjson"

// SubmissionService 是 handler 依赖的流水线能力，由 *service.PublishService 实现。
type SubmissionService interface {
	PublishApp(ctx context.Context, fields domain.SubmissionFields, repositoryURL string, onProgress service.ProgressFunc) (*domain.AppSubmission, error)
	GetAppSubmission(ctx context.Context, id string) (*domain.AppSubmission, error)
	GetAppSubmissions(ctx context.Context, developerID string) []*domain.AppSubmission
	GetProcessingJob(ctx context.Context, submissionID string) (*domain.ProcessingJob, error)
	ListAssets(ctx context.Context, submissionID string) ([]*domain.AppAsset, error)
	GetBuildLogs(ctx context.Context, submissionID string) (string, error)
}

var _ SubmissionService = (*service.PublishService)(nil)

type SubmissionHandler struct {
	svc SubmissionService
}

func NewSubmissionHandler(svc SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

type createSubmissionRequest struct {
	domain.SubmissionFields
	RepositoryURL string `json:"repository_url"`
}

func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	if strings.Contains(r.Header.Get("Accept"), ndjsonContentType) {
		h.createStreaming(w, r, req)
		return
	}

	sub, err := h.svc.PublishApp(r.Context(), req.SubmissionFields, req.RepositoryURL, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// createStreaming 先逐行输出 {"progress":N}，最后输出一行 {"data":…} 或 {"error":…}。
func (h *SubmissionHandler) createStreaming(w http.ResponseWriter, r *http.Request, req createSubmissionRequest) {
	w.Header().Set("Content-Type", ndjsonContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	stream := &ndjsonWriter{w: w, enc: json.NewEncoder(w)}
	stream.flusher, _ = w.(http.Flusher)

	sub, err := h.svc.PublishApp(r.Context(), req.SubmissionFields, req.RepositoryURL, func(pct int) {
		stream.write(map[string]int{"progress": pct}, false)
	})
	if err != nil {
		_, body := errorResponse(err)
		stream.write(body, true)
		return
	}
	stream.write(envelope{Data: sub}, true)
}

// ndjsonWriter 串行化进度回调与最终结果的写入，最终行之后的进度被忽略。
type ndjsonWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	closed  bool
}

func (s *ndjsonWriter) write(v any, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	_ = s.enc.Encode(v)
	if s.flusher != nil {
		s.flusher.Flush()
	}
	s.closed = final
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := h.svc.GetAppSubmission(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub == nil {
		writeError(w, domain.ErrSubmissionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) ListByDeveloper(w http.ResponseWriter, r *http.Request) {
	developerID := chi.URLParam(r, "developerID")
	writeJSON(w, http.StatusOK, h.svc.GetAppSubmissions(r.Context(), developerID))
}

func (h *SubmissionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.svc.GetProcessingJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *SubmissionHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	assets, err := h.svc.ListAssets(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *SubmissionHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logs, err := h.svc.GetBuildLogs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}
