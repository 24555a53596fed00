package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("report-1", "2024/student-1/report.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	reportID, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "report-1", reportID)
	assert.Equal(t, "2024/student-1/report.pdf", relPath)
	assert.WithinDuration(t, expiresAt, parsedExp, time.Second)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("report-1", "a.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)
	token, _, err := signer.Generate("report-1", "a.pdf")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	// cleanup path tolerates expiry
	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", relPath)
}
