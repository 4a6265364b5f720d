package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("exp-1", "submissions/form-submissions-2025-10-22.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	exportID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "submissions/form-submissions-2025-10-22.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2025, 10, 22, 9, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.now = func() time.Time { return now }
	token, _, err := signer.Generate("exp-1", "file.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	exportID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "file.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "file.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, _, _, err = signer.Parse("not-a-token", false)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestLocalStorageSaveOpenCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	rel, err := store.Save("a/export.csv", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "a/export.csv", rel)

	f, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a", "export.csv"), old, old))
	_, err = store.Save("fresh.csv", []byte("new"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/export.csv"}, deleted)
	_, err = os.Stat(store.Path("fresh.csv"))
	assert.NoError(t, err)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)
	_, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}
