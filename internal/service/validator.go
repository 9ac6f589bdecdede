package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator 对提交字段做纯结构校验，不访问网络或存储。
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// required 只拒绝空串，notblank 额外拒绝纯空白。
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{validate: v}
}

type urlProblem struct {
	code    domain.Code
	message string
	index   int
}

// Validate 收集全部问题后一次性返回。
// 存在缺失/越界/构建配置问题时返回 VALIDATION_ERROR；
// 否则按 icon → repository → screenshots 顺序取第一个 URL 问题的专用错误码。
func (v *Validator) Validate(fields domain.SubmissionFields, repositoryURL string) error {
	var messages []string
	generic := false

	if err := v.validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.Classify(err)
		}
		for _, fe := range verrs {
			messages = append(messages, fieldMessage(fe))
		}
		generic = true
	}
	if strings.TrimSpace(repositoryURL) == "" {
		messages = append(messages, "repository_url is required")
		generic = true
	}
	for _, err := range domain.ValidateBuildConfig(fields.BuildConfig) {
		messages = append(messages, strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": "))
		generic = true
	}

	var urlProblems []urlProblem
	if fields.IconURL != "" && !v.isURL(fields.IconURL) {
		urlProblems = append(urlProblems, urlProblem{
			code:    domain.CodeInvalidIconURL,
			message: fmt.Sprintf("icon_url %q is not a valid URL", fields.IconURL),
			index:   -1,
		})
	}
	if repositoryURL != "" && !v.isURL(repositoryURL) {
		urlProblems = append(urlProblems, urlProblem{
			code:    domain.CodeInvalidRepoURL,
			message: fmt.Sprintf("repository_url %q is not a valid URL", repositoryURL),
			index:   -1,
		})
	}
	for i, s := range fields.Screenshots {
		if !v.isURL(s) {
			urlProblems = append(urlProblems, urlProblem{
				code:    domain.CodeInvalidScreenshotURL,
				message: fmt.Sprintf("screenshots[%d] %q is not a valid URL", i, s),
				index:   i,
			})
		}
	}
	for _, p := range urlProblems {
		messages = append(messages, p.message)
	}

	if len(messages) == 0 {
		return nil
	}
	details := map[string]any{"errors": messages}
	if generic {
		return domain.NewPublishingError(domain.CodeValidation, "submission has missing or invalid fields", details)
	}
	first := urlProblems[0]
	if first.index >= 0 {
		details["index"] = first.index
	}
	return domain.NewPublishingError(first.code, first.message, details)
}

// isURL 要求可解析的绝对 URL（带 scheme 和 host）。
func (v *Validator) isURL(s string) bool {
	return v.validate.Var(s, "url") == nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid: %s", fe.Field(), fe.Tag())
}
