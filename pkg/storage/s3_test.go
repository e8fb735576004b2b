package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportKey(t *testing.T) {
	assert.Equal(t, "exports/ws/site/exp.csv", ExportKey("ws", "site", "exp"))
}

func TestDownloadURLIsSignedLocally(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Region:               "eu-west-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		ExportsBucket:        "lumen-exports-test",
		PresignExpireMinutes: 5,
	}, nil)
	require.NoError(t, err)

	raw, err := s.DownloadURL(context.Background(), ExportKey("ws", "site", "exp"))
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.Contains(u.Host, "lumen-exports-test") || strings.Contains(u.Path, "lumen-exports-test"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
