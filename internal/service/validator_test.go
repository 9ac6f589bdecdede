package service

import (
	"testing"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationErr(t *testing.T, err error) *domain.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := domain.AsError(err)
	require.True(t, ok, "expected *domain.Error, got %T", err)
	assert.Equal(t, domain.KindPublishing, e.Kind)
	return e
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.Screenshots = []string{"https://x/1.png", "https://x/2.png"}
	assert.NoError(t, v.Validate(fields, fooRepo))
}

func TestValidator_CollectsAllMissingFields(t *testing.T) {
	v := NewValidator()
	e := validationErr(t, v.Validate(domain.SubmissionFields{}, ""))

	assert.Equal(t, domain.CodeValidation, e.Code)
	msgs, ok := e.Details["errors"].([]string)
	require.True(t, ok)
	for _, field := range []string{"name", "description", "short_description", "category", "icon_url", "developer_id", "repository_url"} {
		assert.Contains(t, msgs, field+" is required")
	}
}

func TestValidator_InvalidIconURL(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.IconURL = "not-a-url"

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeInvalidIconURL, e.Code)
}

func TestValidator_InvalidRepoURL(t *testing.T) {
	v := NewValidator()
	e := validationErr(t, v.Validate(fooFields(), "github.com/a/b"))
	assert.Equal(t, domain.CodeInvalidRepoURL, e.Code)
}

func TestValidator_InvalidScreenshotCarriesIndex(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.Screenshots = []string{"https://x/ok.png", "https://x/ok2.png", "broken"}

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeInvalidScreenshotURL, e.Code)
	assert.Equal(t, 2, e.Details["index"])
}

func TestValidator_MissingFieldWinsOverURLCode(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.Name = ""
	fields.IconURL = "not-a-url"

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeValidation, e.Code)
	msgs := e.Details["errors"].([]string)
	assert.Len(t, msgs, 2)
}

func TestValidator_NegativePrice(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.Price = -1

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeValidation, e.Code)
}

func TestValidator_BuildConfig(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.BuildConfig = domain.BuildConfig{ContextDir: "../../etc"}

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeValidation, e.Code)
	assert.Contains(t, e.Details["errors"].([]string)[0], "context_dir")
}

func TestValidator_WhitespaceOnlyFieldsAreMissing(t *testing.T) {
	v := NewValidator()
	fields := fooFields()
	fields.Name = "   "
	fields.Description = " "
	fields.Category = "\t"

	e := validationErr(t, v.Validate(fields, fooRepo))
	assert.Equal(t, domain.CodeValidation, e.Code)
	msgs, ok := e.Details["errors"].([]string)
	require.True(t, ok)
	assert.Contains(t, msgs, "name is required")
	assert.Contains(t, msgs, "description is required")
	assert.Contains(t, msgs, "category is required")
}
