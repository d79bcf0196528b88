package domain_test

import (
	"strings"
	"testing"

	"github.com/chris-alexander-pop/system-design-library/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNewContentTrimsAndValidates(t *testing.T) {
	c, err := domain.NewContent("  hello  ", "")
	require.NoError(t, err)
	require.Equal(t, "hello", c.Text())
	require.False(t, c.HasMedia())
}

func TestNewContentRejectsEmptyText(t *testing.T) {
	_, err := domain.NewContent("   ", "")
	require.Error(t, err)
}

func TestNewContentRejectsOversizedText(t *testing.T) {
	_, err := domain.NewContent(strings.Repeat("a", 4097), "")
	require.Error(t, err)
}

func TestNewContentRejectsUnsupportedMediaScheme(t *testing.T) {
	_, err := domain.NewContent("hello", "ftp://example.com/file.png")
	require.Error(t, err)
}

func TestNewContentAcceptsS3MediaRef(t *testing.T) {
	c, err := domain.NewContent("hello", "s3://bucket/key.png")
	require.NoError(t, err)
	require.True(t, c.HasMedia())
}
