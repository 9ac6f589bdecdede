package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/port"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

var (
	_ port.Builder        = (*KanikoBuilder)(nil)
	_ port.BuildLogSource = (*KanikoBuilder)(nil)
)

const (
	labelSubmissionID = "aiverse.publish/submission-id"
	containerName     = "kaniko"

	defaultBuildTimeout = 30 * time.Minute
	defaultPollInterval = 3 * time.Second
)

// 构建子进度检查点
const (
	progressSubmitted = 10
	progressRunning   = 50
	progressFinished  = 100
)

type jobPhase string

const (
	phasePending   jobPhase = ""
	phaseRunning   jobPhase = "running"
	phaseSucceeded jobPhase = "succeeded"
	phaseFailed    jobPhase = "failed"
)

// KanikoBuilder 为每次提交创建一个 Kaniko Job，从 git 仓库构建镜像并推送到 RegistryBase，
// 然后轮询 Job 状态直到结束或超时。镜像引用即产物的 BinaryURL。
type KanikoBuilder struct {
	client             kubernetes.Interface
	namespace          string
	kanikoImage        string
	registryBase       string
	registrySecret     string
	registryMirrors    []string
	insecureRegistries []string
	cacheRepo          string
	httpProxy          string
	noProxy            string
	timeout            time.Duration
	pollInterval       time.Duration
	logger             *slog.Logger
}

type KanikoConfig struct {
	Namespace          string
	KanikoImage        string
	RegistryBase       string
	RegistrySecret     string
	RegistryMirrors    []string
	InsecureRegistries []string
	CacheRepo          string
	HttpProxy          string
	NoProxy            string
	Timeout            time.Duration
	PollInterval       time.Duration
	Logger             *slog.Logger
}

func NewKanikoBuilder(client kubernetes.Interface, cfg KanikoConfig) *KanikoBuilder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultBuildTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &KanikoBuilder{
		client:             client,
		namespace:          cfg.Namespace,
		kanikoImage:        cfg.KanikoImage,
		registryBase:       strings.TrimSuffix(cfg.RegistryBase, "/"),
		registrySecret:     cfg.RegistrySecret,
		registryMirrors:    cfg.RegistryMirrors,
		insecureRegistries: cfg.InsecureRegistries,
		cacheRepo:          cfg.CacheRepo,
		httpProxy:          cfg.HttpProxy,
		noProxy:            cfg.NoProxy,
		timeout:            cfg.Timeout,
		pollInterval:       cfg.PollInterval,
		logger:             cfg.Logger.With("module", "kaniko-builder"),
	}
}

func (b *KanikoBuilder) Build(ctx context.Context, req port.BuildRequest) (*port.BuildResult, error) {
	report := func(pct int) {
		if req.Progress != nil {
			req.Progress(pct)
		}
	}

	report(0)
	destination := b.destination(req.SubmissionID)
	jobName, err := b.submit(ctx, req, destination)
	if err != nil {
		return nil, fmt.Errorf("create kaniko job: %w", err)
	}
	report(progressSubmitted)
	b.logger.Info("kaniko job submitted", "submission_id", req.SubmissionID, "job", jobName, "destination", destination)

	if err := b.waitForJob(ctx, jobName, report); err != nil {
		if cerr := b.cancel(context.WithoutCancel(ctx), jobName); cerr != nil && !apierrors.IsNotFound(cerr) {
			b.logger.Warn("failed to delete kaniko job", "job", jobName, "error", cerr)
		}
		return nil, err
	}
	report(progressFinished)
	return &port.BuildResult{BinaryURL: destination}, nil
}

func (b *KanikoBuilder) waitForJob(ctx context.Context, jobName string, report func(int)) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var (
		failed  bool
		failure string
	)
	err := wait.PollUntilContextCancel(ctx, b.pollInterval, true, func(ctx context.Context) (bool, error) {
		job, err := b.client.BatchV1().Jobs(b.namespace).Get(ctx, jobName, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return false, fmt.Errorf("kaniko job %s disappeared", jobName)
			}
			b.logger.Warn("failed to get kaniko job, retrying", "job", jobName, "error", err)
			return false, nil
		}
		phase, msg := jobToPhase(job)
		switch phase {
		case phaseRunning:
			report(progressRunning)
		case phaseSucceeded:
			return true, nil
		case phaseFailed:
			failed, failure = true, msg
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		if wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("kaniko job %s did not finish within %s: %w", jobName, b.timeout, err)
		}
		return err
	}
	if failed {
		if failure == "" {
			failure = "job failed"
		}
		return fmt.Errorf("kaniko job %s failed: %s", jobName, failure)
	}
	return nil
}

func (b *KanikoBuilder) destination(submissionID string) string {
	return fmt.Sprintf("%s/app-%s:latest", b.registryBase, compactID(submissionID))
}

func (b *KanikoBuilder) submit(ctx context.Context, req port.BuildRequest, destination string) (string, error) {
	jobName := fmt.Sprintf("publish-%s", compactID(req.SubmissionID))
	ttl := int32(3600)
	backoff := int32(0)

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: b.namespace,
			Labels:    map[string]string{labelSubmissionID: req.SubmissionID},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            &backoff,
			TTLSecondsAfterFinished: &ttl,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{labelSubmissionID: req.SubmissionID},
				},
				Spec: b.podSpec(b.args(req, destination)),
			},
		},
	}

	if _, err := b.client.BatchV1().Jobs(b.namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return "", err
	}
	return jobName, nil
}

func (b *KanikoBuilder) args(req port.BuildRequest, destination string) []string {
	cfg := req.Config.WithDefaults()

	gitContext := req.RepositoryURL
	if strings.HasPrefix(gitContext, "https://") || strings.HasPrefix(gitContext, "http://") {
		gitContext = "git://" + strings.TrimPrefix(strings.TrimPrefix(gitContext, "https://"), "http://")
	}

	args := []string{
		fmt.Sprintf("--context=%s#%s", gitContext, qualifyGitRef(cfg.GitRef)),
		fmt.Sprintf("--dockerfile=%s", cfg.Dockerfile),
		fmt.Sprintf("--destination=%s", destination),
		"--cache=true",
	}
	// 子目录作为构建上下文，Kaniko 会在子目录下查找 Dockerfile
	if cfg.ContextDir != "" && cfg.ContextDir != "." {
		args = append(args, fmt.Sprintf("--context-sub-path=%s", cfg.ContextDir))
	}
	if b.cacheRepo != "" {
		args = append(args, fmt.Sprintf("--cache-repo=%s", b.cacheRepo))
	}
	if cfg.BuildCommand != "" {
		args = append(args, fmt.Sprintf("--build-arg=BUILD_COMMAND=%s", cfg.BuildCommand))
	}
	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("--build-arg=%s=%s", k, cfg.Env[k]))
	}
	for _, mirror := range b.registryMirrors {
		args = append(args, fmt.Sprintf("--registry-mirror=%s", mirror))
	}
	for _, reg := range b.insecureRegistries {
		args = append(args, fmt.Sprintf("--insecure-registry=%s", reg))
		args = append(args, fmt.Sprintf("--skip-tls-verify-registry=%s", reg))
	}
	return args
}

func (b *KanikoBuilder) podSpec(args []string) corev1.PodSpec {
	spec := corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
		Containers: []corev1.Container{
			{
				Name:  containerName,
				Image: b.kanikoImage,
				Args:  args,
			},
		},
	}
	if b.httpProxy != "" {
		spec.Containers[0].Env = append(spec.Containers[0].Env,
			corev1.EnvVar{Name: "HTTP_PROXY", Value: b.httpProxy},
			corev1.EnvVar{Name: "HTTPS_PROXY", Value: b.httpProxy},
			corev1.EnvVar{Name: "http_proxy", Value: b.httpProxy},
			corev1.EnvVar{Name: "https_proxy", Value: b.httpProxy},
		)
		if b.noProxy != "" {
			spec.Containers[0].Env = append(spec.Containers[0].Env,
				corev1.EnvVar{Name: "NO_PROXY", Value: b.noProxy},
				corev1.EnvVar{Name: "no_proxy", Value: b.noProxy},
			)
		}
	}
	if b.registrySecret != "" {
		volumeName := "docker-config"
		spec.Volumes = []corev1.Volume{
			{
				Name: volumeName,
				VolumeSource: corev1.VolumeSource{
					Secret: &corev1.SecretVolumeSource{
						SecretName: b.registrySecret,
						Items: []corev1.KeyToPath{
							{Key: ".dockerconfigjson", Path: "config.json"},
						},
					},
				},
			},
		}
		spec.Containers[0].VolumeMounts = []corev1.VolumeMount{
			{Name: volumeName, MountPath: "/kaniko/.docker", ReadOnly: true},
		}
	}
	return spec
}

func (b *KanikoBuilder) cancel(ctx context.Context, jobName string) error {
	propagation := metav1.DeletePropagationForeground
	return b.client.BatchV1().Jobs(b.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
}

// GetLogs 通过 submission label 找到构建 Pod，读取容器日志。
func (b *KanikoBuilder) GetLogs(ctx context.Context, submissionID string) (string, error) {
	pods, err := b.client.CoreV1().Pods(b.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", labelSubmissionID, submissionID),
	})
	if err != nil {
		return "", fmt.Errorf("list pods for submission %s: %w", submissionID, err)
	}
	if len(pods.Items) == 0 {
		return "", nil
	}

	pod := pods.Items[0]
	stream, err := b.client.CoreV1().Pods(b.namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		Container: containerName,
	}).Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("get pod logs %s: %w", pod.Name, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("read pod logs %s: %w", pod.Name, err)
	}
	return string(data), nil
}

func compactID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// qualifyGitRef 把分支与 tag 补全为完整 ref，commit hash 原样返回。
func qualifyGitRef(ref string) string {
	switch {
	case ref == "", strings.HasPrefix(ref, "refs/"), isCommitHash(ref):
		return ref
	case looksLikeTag(ref):
		return "refs/tags/" + ref
	}
	return "refs/heads/" + ref
}

func isCommitHash(ref string) bool {
	if len(ref) < 7 || len(ref) > 40 {
		return false
	}
	for _, c := range ref {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func looksLikeTag(ref string) bool {
	return strings.HasPrefix(ref, "v") && len(ref) > 1 && ref[1] >= '0' && ref[1] <= '9'
}

func jobToPhase(job *batchv1.Job) (jobPhase, string) {
	for _, cond := range job.Status.Conditions {
		if cond.Type == batchv1.JobComplete && cond.Status == corev1.ConditionTrue {
			return phaseSucceeded, ""
		}
		if cond.Type == batchv1.JobFailed && cond.Status == corev1.ConditionTrue {
			msg := cond.Message
			if msg == "" {
				msg = cond.Reason
			}
			return phaseFailed, msg
		}
	}
	if job.Status.Active > 0 {
		return phaseRunning, ""
	}
	return phasePending, ""
}
