package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/ragweb/internal/models"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	s, err := Open(path, nil)
	require.NoError(t, err)
	return s, path
}

func TestCreate_UniqueIDsAndTitles(t *testing.T) {
	s, _ := tempStore(t)

	seen := map[string]bool{}
	titles := map[string]bool{}
	for i := 0; i < 5; i++ {
		sess, err := s.Create()
		require.NoError(t, err)
		assert.False(t, seen[sess.ID], "id reused: %s", sess.ID)
		assert.False(t, titles[sess.Title], "title reused: %s", sess.Title)
		seen[sess.ID] = true
		titles[sess.Title] = true
		assert.Empty(t, sess.Messages)
		assert.Empty(t, sess.ScrapedURLs)
	}
}

func TestAppendAndReload(t *testing.T) {
	s, path := tempStore(t)

	sess, err := s.Create()
	require.NoError(t, err)

	msg := models.Message{Role: models.RoleUser, Content: "hello", Timestamp: time.Now()}
	require.NoError(t, s.AppendMessage(sess.ID, msg))
	require.NoError(t, s.AppendURLs(sess.ID, []string{"https://example.com"}))

	// Reopen from disk and verify everything survived the rewrite.
	reloaded, err := Open(path, nil)
	require.NoError(t, err)

	got, err := reloaded.Load(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, []string{"https://example.com"}, got.ScrapedURLs)
}

func TestRemoveLastMessage(t *testing.T) {
	s, _ := tempStore(t)

	sess, err := s.Create()
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "a"}))
	require.NoError(t, s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "b"}))
	require.NoError(t, s.RemoveLastMessage(sess.ID))

	got, err := s.Load(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "a", got.Messages[0].Content)

	// Removing from an empty transcript is a no-op, not an error.
	require.NoError(t, s.RemoveLastMessage(sess.ID))
	require.NoError(t, s.RemoveLastMessage(sess.ID))
}

func TestLoad_NotFound(t *testing.T) {
	s, _ := tempStore(t)
	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOpen_CorruptFileFallsBackEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Empty(t, s.List())

	// The corrupt content is preserved beside the store.
	_, statErr := os.Stat(path + ".corrupt")
	assert.NoError(t, statErr)
}

func TestPersistFailureRevertsMemory(t *testing.T) {
	s, path := tempStore(t)

	sess, err := s.Create()
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "kept"}))

	// Occupy the temp path with a directory so the next rewrite fails.
	require.NoError(t, os.Mkdir(path+".tmp", 0755))

	err = s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "dangling"})
	require.Error(t, err)
	got, err := s.Load(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1, "failed append must not stick in memory")
	assert.Equal(t, "kept", got.Messages[0].Content)

	err = s.RemoveLastMessage(sess.ID)
	require.Error(t, err)
	require.Len(t, got.Messages, 1, "failed removal must not stick in memory")

	err = s.AppendURLs(sess.ID, []string{"https://example.com"})
	require.Error(t, err)
	assert.Empty(t, got.ScrapedURLs)

	err = s.DeleteAll()
	require.Error(t, err)
	assert.Len(t, s.List(), 1)

	// With the obstruction gone the same mutations go through.
	require.NoError(t, os.Remove(path+".tmp"))
	require.NoError(t, s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "second"}))
	got, err = s.Load(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}

func TestDeleteAll(t *testing.T) {
	s, path := tempStore(t)
	_, err := s.Create()
	require.NoError(t, err)
	_, err = s.Create()
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll())
	assert.Empty(t, s.List())

	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	assert.Empty(t, reloaded.List())
}
