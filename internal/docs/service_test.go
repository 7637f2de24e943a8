package docs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pidvault/internal/content"
	"pidvault/internal/docs"
	"pidvault/internal/metastore"
	"pidvault/internal/testutil"
)

type fixture struct {
	svc     *docs.DocService
	store   *metastore.MemoryStore
	content docs.ContentStore
	idgen   *testutil.StubIDGenerator
	logger  *testutil.RecordingLogger
	metrics *countingMetrics
}

func newFixture(t *testing.T, cs docs.ContentStore) *fixture {
	t.Helper()
	if cs == nil {
		cs = content.NewMemoryStore()
	}
	f := &fixture{
		store:   metastore.NewMemoryStore(),
		content: cs,
		idgen:   testutil.NewStubIDGenerator(),
		logger:  testutil.NewRecordingLogger(),
		metrics: &countingMetrics{},
	}
	f.svc = docs.NewDocService(f.store, f.content, f.logger, testutil.FixedClock(), f.idgen, f.metrics, "http://localhost:5000/")
	return f
}

func file(name, mime, body string) docs.UploadFile {
	return docs.UploadFile{Name: name, MimeType: mime, Body: strings.NewReader(body)}
}

func fetch(t *testing.T, svc *docs.DocService, id string) string {
	t.Helper()
	_, rc, err := svc.OpenContent(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

type countingMetrics struct {
	mu            sync.Mutex
	uploads       int
	uploadedFiles int
	uploadedBytes int64
	failures      int
	deletes       map[bool]int
}

func (m *countingMetrics) ObserveUpload(files int, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	m.uploadedFiles += files
	m.uploadedBytes += bytes
}

func (m *countingMetrics) IncrementUploadFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *countingMetrics) IncrementDelete(found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deletes == nil {
		m.deletes = map[bool]int{}
	}
	m.deletes[found]++
}

func (m *countingMetrics) ObserveStoreWrite(time.Time) {}

func TestUpload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	recs, err := f.svc.Upload(ctx, "P1", "reference", []docs.UploadFile{
		file("a.pdf", "application/pdf", "%PDF-a"),
		file("b.png", "image/png", "\x89PNG"),
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	listed, err := f.svc.List(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, listed, 2)

	want := map[string]string{"a.pdf": "%PDF-a", "b.png": "\x89PNG"}
	for _, r := range listed {
		assert.Equal(t, "P1", r.ProjectID)
		assert.Equal(t, docs.CategoryReference, r.Category)
		assert.Equal(t, "http://localhost:5000/uploads/"+r.ID, r.URL)
		assert.Equal(t, int64(len(want[r.Name])), r.Size)
		assert.Equal(t, testutil.FixedClock().Now().UnixMilli(), r.UploadedAt)
		assert.Equal(t, docs.CurrentSchemaVersion, r.SchemaVersion)
		assert.Equal(t, want[r.Name], fetch(t, f.svc, r.ID))
	}
	assert.Equal(t, "application/pdf", listed[0].MimeType)

	assert.Equal(t, 1, f.metrics.uploads)
	assert.Equal(t, 2, f.metrics.uploadedFiles)
	assert.Equal(t, int64(10), f.metrics.uploadedBytes)
}

func TestUpload_DefaultCategory(t *testing.T) {
	f := newFixture(t, nil)
	recs, err := f.svc.Upload(context.Background(), "P1", "", []docs.UploadFile{file("a.pdf", "", "x")})
	require.NoError(t, err)
	assert.Equal(t, docs.CategoryPID, recs[0].Category)
}

func TestUpload_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("no files", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Upload(ctx, "P1", "pid", nil)
		assert.ErrorIs(t, err, docs.ErrNoFiles)
	})

	t.Run("invalid category writes nothing", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Upload(ctx, "P1", "drawing", []docs.UploadFile{file("a.pdf", "", "x")})
		assert.ErrorIs(t, err, docs.ErrInvalidCategory)

		names, err := f.content.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("empty session commit", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.BeginUpload().Commit(ctx, "P1", "pid")
		assert.ErrorIs(t, err, docs.ErrNoFiles)
	})
}

// failingContent fails Put for the nth call (1-based) after consuming a few bytes.
type failingContent struct {
	docs.ContentStore
	failOn int
	calls  int
}

func (c *failingContent) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	c.calls++
	if c.calls == c.failOn {
		buf := make([]byte, 2)
		io.ReadFull(r, buf)
		c.ContentStore.Put(ctx, name, bytes.NewReader(buf))
		return 2, errors.New("disk full")
	}
	return c.ContentStore.Put(ctx, name, r)
}

func TestUpload_PartialFailureCleansUp(t *testing.T) {
	ctx := context.Background()
	cs := &failingContent{ContentStore: content.NewMemoryStore(), failOn: 3}
	f := newFixture(t, cs)

	_, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{
		file("a.pdf", "", "aaaa"),
		file("b.pdf", "", "bbbb"),
		file("c.pdf", "", "cccc"),
	})
	require.Error(t, err)

	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all, "no record may be saved for a failed batch")

	names, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "bytes of the failed batch must be removed")
	assert.Equal(t, 1, f.metrics.failures)
}

func TestUpload_IDCollisions(t *testing.T) {
	ctx := context.Background()

	t.Run("same name twice in one batch", func(t *testing.T) {
		f := newFixture(t, nil)
		f.idgen.Fixed = "1705314600000-a.pdf"

		recs, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{
			file("a.pdf", "", "first"),
			file("a.pdf", "", "second"),
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "1705314600000-a.pdf", recs[0].ID)
		assert.NotEqual(t, recs[0].ID, recs[1].ID)
		assert.Equal(t, "first", fetch(t, f.svc, recs[0].ID))
		assert.Equal(t, "second", fetch(t, f.svc, recs[1].ID))
		assert.Len(t, f.logger.Entries("WARN"), 1)
	})

	t.Run("collision with an existing record", func(t *testing.T) {
		f := newFixture(t, nil)
		f.idgen.Fixed = "fixed-a.pdf"

		first, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a.pdf", "", "old")})
		require.NoError(t, err)
		second, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a.pdf", "", "new")})
		require.NoError(t, err)

		assert.NotEqual(t, first[0].ID, second[0].ID)
		assert.Equal(t, "old", fetch(t, f.svc, first[0].ID))
		assert.Equal(t, "new", fetch(t, f.svc, second[0].ID))
	})

	t.Run("concurrent sessions in the same millisecond", func(t *testing.T) {
		f := newFixture(t, nil)
		svc := docs.NewDocService(f.store, f.content, f.logger, testutil.FixedClock(), docs.TimestampIDGenerator{}, f.metrics, "")

		a := svc.BeginUpload()
		b := svc.BeginUpload()
		recA, err := a.AddFile(ctx, "a.pdf", "", strings.NewReader("from a"))
		require.NoError(t, err)
		recB, err := b.AddFile(ctx, "a.pdf", "", strings.NewReader("from b"))
		require.NoError(t, err)
		require.NotEqual(t, recA.ID, recB.ID)

		_, err = a.Commit(ctx, "P1", "pid")
		require.NoError(t, err)
		_, err = b.Commit(ctx, "P1", "pid")
		require.NoError(t, err)

		assert.Equal(t, "from a", fetch(t, svc, recA.ID))
		assert.Equal(t, "from b", fetch(t, svc, recB.ID))
	})

	t.Run("aborted session keeps a committed sibling intact", func(t *testing.T) {
		f := newFixture(t, nil)
		svc := docs.NewDocService(f.store, f.content, f.logger, testutil.FixedClock(), docs.TimestampIDGenerator{}, f.metrics, "")

		a := svc.BeginUpload()
		b := svc.BeginUpload()
		recA, err := a.AddFile(ctx, "a.pdf", "", strings.NewReader("kept"))
		require.NoError(t, err)
		_, err = b.AddFile(ctx, "a.pdf", "", strings.NewReader("dropped"))
		require.NoError(t, err)

		_, err = a.Commit(ctx, "P1", "pid")
		require.NoError(t, err)
		b.Abort(ctx)

		assert.Equal(t, "kept", fetch(t, svc, recA.ID))
		got, err := svc.Get(ctx, recA.ID)
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", got.Name)
	})

	t.Run("released ids can be reused after abort", func(t *testing.T) {
		f := newFixture(t, nil)
		f.idgen.Fixed = "fixed-a.pdf"

		s := f.svc.BeginUpload()
		_, err := s.AddFile(ctx, "a.pdf", "", strings.NewReader("gone"))
		require.NoError(t, err)
		s.Abort(ctx)

		recs, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a.pdf", "", "again")})
		require.NoError(t, err)
		assert.Equal(t, "fixed-a.pdf", recs[0].ID)
	})
}

func TestUpload_SanitizesStorageName(t *testing.T) {
	f := newFixture(t, nil)
	recs, err := f.svc.Upload(context.Background(), "P1", "pid", []docs.UploadFile{
		file("../../etc/passwd", "", "x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "../../etc/passwd", recs[0].Name)
	assert.True(t, docs.ValidStorageName(recs[0].ID), "id %q", recs[0].ID)
	assert.True(t, strings.HasSuffix(recs[0].ID, "-passwd"))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a", "", "a")})
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, "P2", "pid", []docs.UploadFile{file("b", "", "b")})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p2, err := f.svc.List(ctx, "P2")
	require.NoError(t, err)
	require.Len(t, p2, 1)
	assert.Equal(t, "b", p2[0].Name)

	none, err := f.svc.List(ctx, "P3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record and content", func(t *testing.T) {
		f := newFixture(t, nil)
		recs, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a", "", "a"), file("b", "", "b")})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, recs[0].ID))

		all, err := f.svc.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, recs[1].ID, all[0].ID)

		_, _, err = f.svc.OpenContent(ctx, recs[0].ID)
		assert.ErrorIs(t, err, docs.ErrNotFound)
		assert.Equal(t, 1, f.metrics.deletes[true])
	})

	t.Run("missing id", func(t *testing.T) {
		f := newFixture(t, nil)
		err := f.svc.Delete(ctx, "nope")
		assert.ErrorIs(t, err, docs.ErrNotFound)
		assert.Equal(t, 1, f.metrics.deletes[false])
	})

	t.Run("missing backing object is tolerated", func(t *testing.T) {
		f := newFixture(t, nil)
		recs, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("a", "", "a")})
		require.NoError(t, err)
		require.NoError(t, f.content.Remove(ctx, recs[0].ID))

		require.NoError(t, f.svc.Delete(ctx, recs[0].ID))
		_, err = f.svc.Get(ctx, recs[0].ID)
		assert.ErrorIs(t, err, docs.ErrNotFound)
	})
}

func TestOrphans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	recs, err := f.svc.Upload(ctx, "P1", "pid", []docs.UploadFile{file("kept", "", "k"), file("lost", "", "l")})
	require.NoError(t, err)
	_, err = f.content.Put(ctx, "stray-2", strings.NewReader("s"))
	require.NoError(t, err)
	_, err = f.content.Put(ctx, "stray-1", strings.NewReader("s"))
	require.NoError(t, err)
	require.NoError(t, f.content.Remove(ctx, recs[1].ID))

	report, err := f.svc.FindOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stray-1", "stray-2"}, report.UnreferencedContent)
	require.Len(t, report.MissingContent, 1)
	assert.Equal(t, recs[1].ID, report.MissingContent[0].ID)

	removed, err := f.svc.RemoveOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stray-1", "stray-2"}, removed)

	names, err := f.content.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{recs[0].ID}, names)

	// Records are never removed by orphan cleanup.
	all, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
