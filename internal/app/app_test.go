package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pidvault/internal/config"
	"pidvault/internal/docs"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	if mutate != nil {
		mutate(cfg)
	}
	var logs bytes.Buffer
	a, err := NewApp(context.Background(), cfg, "test", Options{LogWriter: &logs})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, &logs
}

func TestNewApp_DefaultConfig(t *testing.T) {
	a, logs := newTestApp(t, nil)
	ctx := context.Background()

	recs, err := a.Service().Upload(ctx, "p1", "", []docs.UploadFile{
		{Name: "a.pdf", MimeType: "application/pdf", Body: strings.NewReader("drawing")},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, strings.HasPrefix(recs[0].URL, "http://localhost:5000/uploads/"))

	files, err := a.ListFiles(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = os.Stat(a.cfg.Store.Path)
	require.NoError(t, err, "metadata document not written")

	report, removed, err := a.CollectGarbage(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.UnreferencedContent, "metadata.json must not be reported as orphan")
	assert.Nil(t, removed)

	assert.ErrorIs(t, a.DeleteFile(ctx, recs[0].ID, false), ErrServerMayBeRunning)
	_, err = a.Service().Get(ctx, recs[0].ID)
	require.NoError(t, err, "refused delete must leave the record")

	require.NoError(t, a.DeleteFile(ctx, recs[0].ID, true))
	assert.ErrorIs(t, a.DeleteFile(ctx, recs[0].ID, true), docs.ErrNotFound)

	assert.Contains(t, logs.String(), "run started")
}

func TestDeleteFile_SQLiteNeedsNoConfirmation(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.Store.Type = "sqlite"
		cfg.Store.DataDir = filepath.Join(cfg.BaseDir, "db")
	})
	ctx := context.Background()

	recs, err := a.Service().Upload(ctx, "p1", "pid", []docs.UploadFile{
		{Name: "a.pdf", Body: strings.NewReader("drawing")},
	})
	require.NoError(t, err)
	require.NoError(t, a.DeleteFile(ctx, recs[0].ID, false))
}

func TestCollectGarbage_Apply(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx := context.Background()

	orphan := filepath.Join(a.cfg.Content.Root, "1700000000000-stray.pdf")
	require.NoError(t, os.WriteFile(orphan, []byte("x"), 0644))

	report, removed, err := a.CollectGarbage(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1700000000000-stray.pdf"}, report.UnreferencedContent)
	assert.Equal(t, []string{"1700000000000-stray.pdf"}, removed)
	assert.NoFileExists(t, orphan)
	assert.FileExists(t, a.cfg.Store.Path)
}

func TestNewApp_EncryptedContent(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Encryption.Type = "test"

	var logs bytes.Buffer
	a, err := NewApp(context.Background(), cfg, "test", Options{LogWriter: &logs, Passphrase: "secret"})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	recs, err := a.Service().Upload(ctx, "p", "pid", []docs.UploadFile{{Name: "b.pdf", Body: strings.NewReader("plain")}})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(filepath.Join(cfg.Content.Root, recs[0].ID))
	require.NoError(t, err)
	assert.NotEqual(t, "plain", string(onDisk))

	srv := httptest.NewServer(a.Handler(time.UTC))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/uploads/" + recs[0].ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Store.Type = "cassandra" }},
		{"unknown content", func(c *config.Config) { c.Content.Type = "ftp" }},
		{"unknown encryption", func(c *config.Config) { c.Encryption.Type = "rot13" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig(t.TempDir())
			tt.mutate(cfg)
			_, err := NewApp(context.Background(), cfg, "test", Options{LogWriter: &bytes.Buffer{}})
			assert.Error(t, err)
		})
	}
}

func TestMetadataIgnorePatterns(t *testing.T) {
	cfg := config.NewConfig("/srv/pv")
	assert.Equal(t, []string{"metadata.json", "metadata.json-*", "metadata.json.corrupt-*"}, metadataIgnorePatterns(cfg))

	cfg.Store = config.StoreConfig{Type: "sqlite", DataDir: "/srv/pv/uploads"}
	assert.Equal(t, []string{"metadata.db", "metadata.db-*", "metadata.db.corrupt-*"}, metadataIgnorePatterns(cfg))

	cfg.Store = config.StoreConfig{Type: "json", Path: "/srv/pv/meta/metadata.json"}
	assert.Nil(t, metadataIgnorePatterns(cfg))

	cfg = config.NewConfig("/srv/pv")
	cfg.Content.Type = "s3"
	assert.Nil(t, metadataIgnorePatterns(cfg))
}

func TestBackupMetadata(t *testing.T) {
	for _, storeType := range []string{"json", "sqlite"} {
		t.Run(storeType, func(t *testing.T) {
			a, _ := newTestApp(t, func(c *config.Config) {
				c.Store.Type = storeType
				c.Store.DataDir = filepath.Join(c.BaseDir, "db")
			})
			ctx := context.Background()
			_, err := a.Service().Upload(ctx, "p", "", []docs.UploadFile{{Name: "a.pdf", Body: strings.NewReader("a")}})
			require.NoError(t, err)

			dest := filepath.Join(t.TempDir(), "metadata.bak")
			require.NoError(t, a.BackupMetadata(ctx, dest))
			info, err := os.Stat(dest)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	a, _ := newTestApp(t, func(c *config.Config) { c.Store.Type = "memory" })
	assert.Error(t, a.BackupMetadata(context.Background(), filepath.Join(t.TempDir(), "x")))
}
