package chunk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkerError_Format(t *testing.T) {
	err := NewError(ErrCodeParseFailed, "grammar rejected input", nil)
	assert.Equal(t, "[ERR_202_PARSE_FAILED] grammar rejected input", err.Error())
	assert.Equal(t, CategoryExtraction, err.Category)
}

func TestChunkerError_CategoryFromCode(t *testing.T) {
	assert.Equal(t, CategoryConfig, NewError(ErrCodeWindowConfig, "", nil).Category)
	assert.Equal(t, CategoryConfig, NewError(ErrCodeRuleConfig, "", nil).Category)
	assert.Equal(t, CategoryExtraction, NewError(ErrCodeUnknownLang, "", nil).Category)
	assert.Equal(t, CategoryBudget, NewError(ErrCodeBudgetViolated, "", nil).Category)
	assert.Equal(t, CategoryInput, NewError(ErrCodeCorruptInput, "", nil).Category)
}

func TestChunkerError_UnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := NewError(ErrCodeParseFailed, "parse failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &ChunkerError{Code: ErrCodeParseFailed}),
		"errors.Is matches by code")
	assert.False(t, errors.Is(err, &ChunkerError{Code: ErrCodeUnknownLang}))
}

func TestChunkerError_WithDetail(t *testing.T) {
	err := ConfigError("bad rule", nil).
		WithDetail("language", "python").
		WithDetail("rule", "decorated_definition")

	assert.Equal(t, "python", err.Details["language"])
	assert.Equal(t, "decorated_definition", err.Details["rule"])
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(ConfigError("bad", nil)))
	assert.True(t, IsConfigError(fmt.Errorf("wrapped: %w", NewError(ErrCodeWindowConfig, "bad", nil))))
	assert.False(t, IsConfigError(NewError(ErrCodeParseFailed, "bad", nil)))
	assert.False(t, IsConfigError(errors.New("plain")))
}
