package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocalSession(t *testing.T) (*LocalSession, string) {
	dir := filepath.Join(t.TempDir(), "root")
	s, err := NewLocalSession(dir, zap.NewNop())
	require.NoError(t, err)
	return s, dir
}

func TestLocalSessionCreateAndClose(t *testing.T) {
	s, dir := newTestLocalSession(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "run/0")
	require.NoError(t, err)
	assert.False(t, exists)

	sink, err := s.Create(ctx, "run/0", CreateOptions{BufferSize: 16, Replication: 3, BlockSize: 1 << 20})
	require.NoError(t, err)

	_, err = sink.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, sink.Hflush())
	data, err := os.ReadFile(filepath.Join(dir, "run", "0"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data), "hflush hands data to the OS")

	_, err = sink.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, sink.Hsync())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "second close is a no-op")

	size, err := s.Size(ctx, "run/0")
	require.NoError(t, err)
	assert.Equal(t, int64(16), size)

	exists, err = s.Exists(ctx, "run/0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalSessionExclusiveCreate(t *testing.T) {
	s, dir := newTestLocalSession(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "run"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run", "0"), []byte("keep"), 0640))

	_, err := s.Create(context.Background(), "run/0", CreateOptions{BufferSize: 16})
	assert.ErrorIs(t, err, ErrExist)

	data, err := os.ReadFile(filepath.Join(dir, "run", "0"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestLocalSinkAbortRemovesFile(t *testing.T) {
	s, _ := newTestLocalSession(t)
	ctx := context.Background()

	sink, err := s.Create(ctx, "run/1", CreateOptions{BufferSize: 4})
	require.NoError(t, err)
	_, err = sink.Write([]byte("partial data"))
	require.NoError(t, err)
	require.NoError(t, sink.Abort())

	exists, err := s.Exists(ctx, "run/1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalSessionDelete(t *testing.T) {
	s, _ := newTestLocalSession(t)
	ctx := context.Background()

	sink, err := s.Create(ctx, "run/2", CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	require.NoError(t, s.Delete(ctx, "run/2"))
	exists, err := s.Exists(ctx, "run/2")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, s.Delete(ctx, "run/2"))
	require.NoError(t, s.Close())
}

func TestLocalSessionCreateCancelled(t *testing.T) {
	s, _ := newTestLocalSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, "run/3", CreateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenFileScheme(t *testing.T) {
	dir := t.TempDir()
	session, err := Open(context.Background(), "file://"+dir+"/bench", Options{}, nil)
	require.NoError(t, err)
	defer session.Close()

	info, err := os.Stat(filepath.Join(dir, "bench"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = Open(context.Background(), "ftp://host/x", Options{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
