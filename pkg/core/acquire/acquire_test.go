package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	"github.com/matzehuels/modfetch/pkg/core/registry/registrytest"
	modfetcherrors "github.com/matzehuels/modfetch/pkg/errors"
)

const dest = "/mods"

func resolved(id, file, url string, size int64) project.Resolved {
	return project.Resolved{
		Project:  &project.Project{Source: project.CurseForge, ID: id, Name: "Project " + id},
		Artifact: project.Artifact{FileName: file, URL: url, Size: size},
	}
}

func setup(t *testing.T) (afero.Fs, *registrytest.Fake, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	return afero.NewMemMapFs(), registrytest.New(project.CurseForge, l), l
}

func TestRunFetches(t *testing.T) {
	fs, reg, l := setup(t)
	reg.AddFile("https://cdn/a.jar", []byte("alpha"))

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", 5),
	})

	require.Len(t, out, 1)
	assert.Equal(t, Fetched, out[0].Status)
	assert.EqualValues(t, 5, out[0].Bytes)
	data, err := afero.ReadFile(fs, "/mods/a.jar")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	assert.Zero(t, l.Len())
}

func TestRunSkipsMatchingSize(t *testing.T) {
	fs, reg, l := setup(t)
	require.NoError(t, afero.WriteFile(fs, "/mods/a.jar", bytes.Repeat([]byte{1}, 1024), 0o644))
	reg.AddFile("https://cdn/a.jar", bytes.Repeat([]byte{2}, 1024))

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", 1024),
	})

	assert.Equal(t, Skipped, out[0].Status)
	assert.Zero(t, reg.Calls("Open", "https://cdn/a.jar"), "never re-fetched")
	assert.Zero(t, l.Len())
}

func TestRunSkipsUnknownSize(t *testing.T) {
	fs, reg, l := setup(t)
	require.NoError(t, afero.WriteFile(fs, "/mods/a.jar", []byte("old"), 0o644))

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", project.SizeUnknown),
	})

	assert.Equal(t, Skipped, out[0].Status)
	assert.Zero(t, reg.Calls("Open", "https://cdn/a.jar"))
}

func TestRunRefetchesSizeMismatch(t *testing.T) {
	fs, reg, l := setup(t)
	require.NoError(t, afero.WriteFile(fs, "/mods/a.jar", bytes.Repeat([]byte{1}, 1024), 0o644))
	reg.AddFile("https://cdn/a.jar", bytes.Repeat([]byte{2}, 2048))

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", 2048),
	})

	assert.Equal(t, Fetched, out[0].Status)
	assert.Equal(t, 1, reg.Calls("Open", "https://cdn/a.jar"))
	fi, err := fs.Stat("/mods/a.jar")
	require.NoError(t, err)
	assert.EqualValues(t, 2048, fi.Size())
}

func TestRunRecordsDownloadFailure(t *testing.T) {
	fs, reg, l := setup(t)
	reg.FailOpen("https://cdn/a.jar", errors.New("connection reset"))
	reg.AddFile("https://cdn/b.jar", []byte("b"))

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", 10),
		resolved("2", "b.jar", "https://cdn/b.jar", 1),
	})

	assert.Equal(t, Missed, out[0].Status)
	assert.Equal(t, Fetched, out[1].Status, "one failure does not stop the others")
	require.Equal(t, 1, l.Len())
	item := l.Items()[0]
	assert.Equal(t, modfetcherrors.ErrCodeUnreachable, item.Kind)
	assert.Equal(t, "Project 1", item.Name)
	assert.Contains(t, item.Reason, "connection reset")
}

func TestRunRejectsUnsafeFileName(t *testing.T) {
	fs, reg, l := setup(t)

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "../evil.jar", "https://cdn/evil.jar", 1),
	})

	assert.Equal(t, Missed, out[0].Status)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, modfetcherrors.ErrCodeWriteFailure, l.Items()[0].Kind)
	assert.Zero(t, reg.Calls("Open", "https://cdn/evil.jar"))
}

func TestRunMissingURL(t *testing.T) {
	fs, reg, l := setup(t)

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "", 1),
	})

	assert.Equal(t, Missed, out[0].Status)
	assert.Equal(t, modfetcherrors.ErrCodeNotFound, l.Items()[0].Kind)
}

func TestRunRejectsNonHTTPURL(t *testing.T) {
	fs, reg, l := setup(t)

	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "file:///etc/passwd", 1),
	})

	assert.Equal(t, Missed, out[0].Status)
	assert.Equal(t, modfetcherrors.ErrCodeUnreachable, l.Items()[0].Kind)
	assert.Zero(t, reg.Calls("Open", "file:///etc/passwd"))
}

// shortStream ends cleanly after fewer bytes than it announced.
type shortStream struct {
	*registrytest.Fake
	length int64
}

func (s shortStream) Open(context.Context, string) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader([]byte("trunc"))), s.length, nil
}

func TestRunDetectsShortStream(t *testing.T) {
	tests := []struct {
		name     string
		declared int64
		length   int64
		want     Status
	}{
		{"declared size", 100, -1, Missed},
		{"content length", project.SizeUnknown, 100, Missed},
		{"declared size wins", 5, 100, Fetched},
		{"no size known", project.SizeUnknown, -1, Fetched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, reg, l := setup(t)

			out := New(fs, dest, registry.NewSet(shortStream{reg, tt.length}), l, Options{}).Run(context.Background(), []project.Resolved{
				resolved("1", "a.jar", "https://cdn/a.jar", tt.declared),
			})

			assert.Equal(t, tt.want, out[0].Status)
			if tt.want == Missed {
				require.Equal(t, 1, l.Len())
				assert.Equal(t, modfetcherrors.ErrCodeWriteFailure, l.Items()[0].Kind)
				assert.Contains(t, l.Items()[0].Reason, "got 5 of 100 bytes")
			} else {
				assert.Zero(t, l.Len())
			}
		})
	}
}

// brokenStream serves a few bytes of every download, then fails.
type brokenStream struct {
	*registrytest.Fake
}

func (b brokenStream) Open(context.Context, string) (io.ReadCloser, int64, error) {
	r := io.MultiReader(bytes.NewReader([]byte("part")), errReader{})
	return io.NopCloser(r), 100, nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("stream interrupted") }

func TestRunLeavesPartialFile(t *testing.T) {
	fs, reg, l := setup(t)

	out := New(fs, dest, registry.NewSet(brokenStream{reg}), l, Options{}).Run(context.Background(), []project.Resolved{
		resolved("1", "a.jar", "https://cdn/a.jar", 100),
	})

	assert.Equal(t, Missed, out[0].Status)
	assert.Equal(t, modfetcherrors.ErrCodeWriteFailure, l.Items()[0].Kind)
	data, err := afero.ReadFile(fs, "/mods/a.jar")
	require.NoError(t, err, "partial file stays")
	assert.Equal(t, "part", string(data))
}

// slowRegistry tracks how many downloads are open at once.
type slowRegistry struct {
	*registrytest.Fake

	mu       sync.Mutex
	inflight int
	peak     int
}

func (s *slowRegistry) Open(context.Context, string) (io.ReadCloser, int64, error) {
	s.mu.Lock()
	s.inflight++
	s.peak = max(s.peak, s.inflight)
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	return io.NopCloser(bytes.NewReader([]byte("x"))), 1, nil
}

func TestRunBoundedPoolAndProgress(t *testing.T) {
	fs, reg, l := setup(t)
	slow := &slowRegistry{Fake: reg}

	var items []project.Resolved
	for i := range 20 {
		name := fmt.Sprintf("f%02d.jar", i)
		items = append(items, resolved(fmt.Sprint(i), name, "https://cdn/"+name, 1))
	}

	var (
		mu    sync.Mutex
		steps []int
	)
	progress := func(current, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 20, total)
		steps = append(steps, current)
	}

	out := New(fs, dest, registry.NewSet(slow), l, Options{Workers: 3, Progress: progress}).Run(context.Background(), items)

	assert.Len(t, out, 20)
	for _, o := range out {
		assert.Equal(t, Fetched, o.Status)
	}
	assert.LessOrEqual(t, slow.peak, 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, steps, "progress is reported in order")
}

func TestRunNothing(t *testing.T) {
	fs, reg, l := setup(t)
	out := New(fs, dest, registry.NewSet(reg), l, Options{}).Run(context.Background(), nil)
	assert.Empty(t, out)
}
