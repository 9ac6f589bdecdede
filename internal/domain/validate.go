package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// gitRefRegex 白名单：字母、数字、-、_、.、/
var gitRefRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// ValidateGitRef 校验 Git 引用（branch/tag/commit），使用字符白名单。
func ValidateGitRef(ref string) error {
	if ref == "" {
		return nil // 空值由调用方设默认值
	}
	if !gitRefRegex.MatchString(ref) {
		return fmt.Errorf("%w: git_ref %q contains invalid characters", ErrInvalidInput, ref)
	}
	return nil
}

// relPathRegex 白名单：字母、数字、-、_、.、/，不允许以 / 开头。
var relPathRegex = regexp.MustCompile(`^[a-zA-Z0-9._][a-zA-Z0-9._/-]*$`)

// ValidateContextDir 校验上下文子目录，防止路径穿越。
func ValidateContextDir(dir string) error {
	return validateRelPath("context_dir", dir)
}

func ValidateDockerfile(path string) error {
	return validateRelPath("dockerfile", path)
}

func validateRelPath(field, p string) error {
	if p == "" || p == "." {
		return nil
	}
	if !relPathRegex.MatchString(p) {
		return fmt.Errorf("%w: %s %q contains invalid characters", ErrInvalidInput, field, p)
	}
	if strings.Contains(p, "..") {
		return fmt.Errorf("%w: %s %q must not contain '..'", ErrInvalidInput, field, p)
	}
	if filepath.IsAbs(filepath.Clean(p)) {
		return fmt.Errorf("%w: %s must be a relative path", ErrInvalidInput, field)
	}
	return nil
}

// ValidateBuildConfig 返回构建配置的全部问题，不提前返回。
func ValidateBuildConfig(c BuildConfig) []error {
	var errs []error
	if err := ValidateGitRef(c.GitRef); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateContextDir(c.ContextDir); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateDockerfile(c.Dockerfile); err != nil {
		errs = append(errs, err)
	}
	return errs
}
