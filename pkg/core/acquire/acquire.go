// Package acquire downloads resolved artifacts into a destination directory.
//
// Each artifact is written verbatim under its registry-declared file name.
// An artifact whose file already exists is left alone when the registry
// declared no size or the existing size matches; otherwise it is fetched
// again. Failures are local: each one becomes a single ledger item and the
// other downloads carry on. A failed or short stream leaves its partial
// file in place; a short file is fetched again by the next run.
//
// Downloads run on a bounded pool. Tasks are admitted in submission order
// and submission blocks while every worker is busy.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/modfetch/pkg/core/ledger"
	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
	modfetcherrors "github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/observability"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 8

// Status is how one artifact ended up.
type Status string

const (
	Fetched Status = "fetched"
	Skipped Status = "skipped"
	Missed  Status = "missed"
)

// Outcome reports one artifact.
type Outcome struct {
	Project  string `json:"project"`
	FileName string `json:"file_name"`
	Path     string `json:"path,omitempty"`
	Status   Status `json:"status"`
	Bytes    int64  `json:"bytes,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Progress is told after every finished artifact.
type Progress func(current, total int)

// Options configures an Acquirer.
type Options struct {
	Workers  int
	Progress Progress
	Logger   *log.Logger
}

// Acquirer writes artifacts into one destination directory.
type Acquirer struct {
	fs     afero.Fs
	dest   string
	regs   registry.Set
	ledger *ledger.Ledger
	opts   Options
	log    *log.Logger
}

// New creates an Acquirer writing to dest on fs. Downloads go through the
// registry each project came from; misses are recorded on l.
func New(fs afero.Fs, dest string, regs registry.Set, l *ledger.Ledger, opts Options) *Acquirer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if l == nil {
		l = ledger.New()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Acquirer{fs: fs, dest: dest, regs: regs, ledger: l, opts: opts, log: logger}
}

// Run downloads every item and returns one outcome per item, in input
// order. It returns once every task has finished.
func (a *Acquirer) Run(ctx context.Context, items []project.Resolved) []Outcome {
	start := time.Now()
	observability.Pipeline().OnAcquireStart(ctx, len(items))

	out := make([]Outcome, len(items))
	if err := a.fs.MkdirAll(a.dest, 0o755); err != nil {
		for i, it := range items {
			out[i] = a.miss(it, modfetcherrors.ErrCodeWriteFailure, fmt.Sprintf("create destination %s: %v", a.dest, err))
		}
		a.finish(ctx, out, start)
		return out
	}

	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(a.opts.Workers)
	for i, it := range items {
		g.Go(func() error {
			out[i] = a.fetch(ctx, it)

			mu.Lock()
			defer mu.Unlock()
			done++
			if a.opts.Progress != nil {
				a.opts.Progress(done, len(items))
			}
			return nil
		})
	}
	_ = g.Wait()

	a.finish(ctx, out, start)
	return out
}

func (a *Acquirer) finish(ctx context.Context, out []Outcome, start time.Time) {
	var fetched, skipped, missed int
	for _, o := range out {
		switch o.Status {
		case Fetched:
			fetched++
		case Skipped:
			skipped++
		case Missed:
			missed++
		}
	}
	a.log.Info("acquisition finished", "fetched", fetched, "skipped", skipped, "missed", missed)
	observability.Pipeline().OnAcquireComplete(ctx, fetched, skipped, missed, time.Since(start))
}

// fetch acquires one artifact. It never returns an error: every failure is
// turned into a ledger item and a Missed outcome.
func (a *Acquirer) fetch(ctx context.Context, it project.Resolved) Outcome {
	art := it.Artifact
	if err := modfetcherrors.ValidateFileName(art.FileName); err != nil {
		return a.miss(it, modfetcherrors.ErrCodeWriteFailure, err.Error())
	}
	if art.URL == "" {
		return a.miss(it, modfetcherrors.ErrCodeNotFound, fmt.Sprintf("no download URL for %s", art.FileName))
	}
	if err := modfetcherrors.ValidateURL(art.URL); err != nil {
		return a.miss(it, modfetcherrors.ErrCodeUnreachable, fmt.Sprintf("download %s: %v", art.FileName, err))
	}
	path := filepath.Join(a.dest, art.FileName)

	if ok, err := a.satisfied(path, art.Size); err != nil {
		return a.miss(it, modfetcherrors.ErrCodeWriteFailure, fmt.Sprintf("stat %s: %v", art.FileName, err))
	} else if ok {
		a.log.Debug("already present", "file", art.FileName)
		return Outcome{Project: it.Project.Label(), FileName: art.FileName, Path: path, Status: Skipped}
	}

	r, ok := a.regs.For(it.Project.Source)
	if !ok {
		return a.miss(it, modfetcherrors.ErrCodeUnreachable, fmt.Sprintf("no %s registry in this run", it.Project.Source.Display()))
	}
	body, length, err := r.Open(ctx, art.URL)
	if err != nil {
		return a.miss(it, modfetcherrors.ErrCodeUnreachable, fmt.Sprintf("download %s: %v", art.FileName, err))
	}
	defer body.Close()

	n, err := a.write(path, body)
	if err != nil {
		return a.miss(it, modfetcherrors.ErrCodeWriteFailure, fmt.Sprintf("write %s: %v", art.FileName, err))
	}
	want := art.Size
	if want < 0 {
		want = length
	}
	if want >= 0 && n != want {
		return a.miss(it, modfetcherrors.ErrCodeWriteFailure, fmt.Sprintf("write %s: got %d of %d bytes", art.FileName, n, want))
	}
	a.log.Debug("downloaded", "file", art.FileName, "bytes", n)
	return Outcome{Project: it.Project.Label(), FileName: art.FileName, Path: path, Status: Fetched, Bytes: n}
}

// satisfied reports whether an existing file at path can stand in for an
// artifact of the declared size.
func (a *Acquirer) satisfied(path string, size int64) (bool, error) {
	fi, err := a.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return size < 0 || fi.Size() == size, nil
}

// write streams r to path, truncating any previous content. A partial file
// is left behind on error.
func (a *Acquirer) write(path string, r io.Reader) (int64, error) {
	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (a *Acquirer) miss(it project.Resolved, kind modfetcherrors.Code, reason string) Outcome {
	a.log.Warn("missed", "project", it.Project.Label(), "reason", reason)
	a.ledger.Add(ledger.Item{Name: it.Project.Label(), Origin: it.Project.Origin(), Reason: reason, Kind: kind})
	return Outcome{Project: it.Project.Label(), FileName: it.Artifact.FileName, Status: Missed, Reason: reason}
}
