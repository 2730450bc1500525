package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTimeout = 30 * time.Second

// Editor is the save pipeline as seen by the fetch side. ApplyRemote runs
// apply under the document's save lock unless the track holds an unsaved
// local edit, in which case the remote value is not applied. Pending
// returns that unsaved value.
type Editor interface {
	ApplyRemote(id uuid.UUID, t models.Track, value string, apply func()) bool
	Pending(id uuid.UUID, t models.Track) (string, bool)
	Discard(id uuid.UUID)
}

type directEditor struct{}

func (directEditor) ApplyRemote(_ uuid.UUID, _ models.Track, _ string, apply func()) bool {
	apply()
	return true
}

func (directEditor) Pending(uuid.UUID, models.Track) (string, bool) { return "", false }

func (directEditor) Discard(uuid.UUID) {}

// Deps are the collaborators shared by NoteService and ChatService.
type Deps struct {
	API   client.API
	Cache cache.Repository
	Keys  *keys.Resolver
	Store *state.Store
	Bus   bus.Publisher
	Log   logging.Logger
	// Editor defaults to applying remote values directly.
	Editor Editor
	// RefreshTimeout bounds background revalidation.
	RefreshTimeout time.Duration
}

type base struct {
	Deps
	sf singleflight.Group
	wg sync.WaitGroup
}

func newBase(d Deps) *base {
	if d.Editor == nil {
		d.Editor = directEditor{}
	}
	if d.Bus == nil {
		d.Bus = bus.Discard{}
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	if d.RefreshTimeout <= 0 {
		d.RefreshTimeout = defaultRefreshTimeout
	}
	return &base{Deps: d}
}

// revalidate runs fn in the background, detached from the caller's
// cancellation but bounded by RefreshTimeout.
func (b *base) revalidate(ctx context.Context, target string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.RefreshTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.Log.Warn(ctx, "background refresh failed", "target", target, "error", err)
		}
	}()
}

// wait blocks until background refreshes finish.
func (b *base) wait() { b.wg.Wait() }

func nowMillis() int64 { return time.Now().UnixMilli() }
