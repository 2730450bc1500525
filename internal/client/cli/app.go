package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/config"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/live"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/saver"
	"github.com/dmitrijs2005/gophdrive/internal/client/services"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/filex"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const shutdownTimeout = 10 * time.Second

// eventStream is the live push channel. SocketStream satisfies it.
type eventStream interface {
	Run(ctx context.Context) error
	Events() <-chan client.Event
}

type App struct {
	config *config.Config
	log    logging.Logger

	keys  *keys.Resolver
	store *state.Store
	bus   *bus.Bus
	notes services.NoteService
	chats services.ChatService
	saver *saver.Pipeline
	live  *live.Reconciler

	stream  eventStream
	closers []func() error

	mu        sync.Mutex
	Mode      Mode
	lastShown uuid.UUID
	reader    *bufio.Reader
	out       io.Writer
}

// NewApp opens the cache backend, unlocks the identity and assembles the
// sync engine.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	var (
		deps    cache.Deps
		closers []func() error
	)
	closeAll := func() {
		for _, fn := range closers {
			_ = fn()
		}
	}

	switch c.CacheBackend {
	case "sqlite":
		if err := filex.EnsureParentDir(c.CacheDSN); err != nil {
			return nil, err
		}
		db, err := client.InitDatabase(ctx, c.CacheDSN)
		if err != nil {
			log.Error(ctx, "error initializing database", "dsn", c.CacheDSN, "error", err)
			return nil, err
		}
		deps.DB = db
		closers = append(closers, db.Close)
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", c.RedisAddr, err)
		}
		deps.Redis = rdb
		closers = append(closers, rdb.Close)
	}

	repo, err := cache.New(c.CacheBackend, deps)
	if err != nil {
		closeAll()
		return nil, err
	}

	reader := bufio.NewReader(os.Stdin)
	id, err := loadIdentity(c, reader, os.Stdout)
	if err != nil {
		closeAll()
		return nil, err
	}

	api, err := client.NewHTTPClient(c.APIURL, c.APIKey, c.RequestTimeout, nil)
	if err != nil {
		closeAll()
		return nil, err
	}
	stream := client.NewSocketStream(c.SocketURL, c.APIKey, log.With("component", "stream"))

	a := newApp(c, log, id, api, repo, stream)
	a.closers = closers
	a.reader = reader
	return a, nil
}

func newApp(c *config.Config, log logging.Logger, id *keys.Identity, api client.API, repo cache.Repository, stream eventStream) *App {
	resolver := keys.NewResolver(id)
	store := state.NewStore()
	b := bus.New()

	pipeline := saver.NewPipeline(saver.Deps{
		API:      api,
		Cache:    repo,
		Keys:     resolver,
		Store:    store,
		Bus:      b,
		Log:      log.With("component", "saver"),
		Debounce: c.SaveDebounce,
	})
	deps := services.Deps{
		API:            api,
		Cache:          repo,
		Keys:           resolver,
		Store:          store,
		Bus:            b,
		Log:            log.With("component", "services"),
		Editor:         pipeline,
		RefreshTimeout: c.RequestTimeout,
	}
	notes := services.NewNoteService(deps)
	chats := services.NewChatService(deps)

	rec := live.NewReconciler(live.Deps{
		Notes:  notes,
		Chats:  chats,
		Keys:   resolver,
		Store:  store,
		Cache:  repo,
		Bus:    b,
		Log:    log.With("component", "live"),
		Editor: pipeline,
	})

	return &App{
		config: c,
		log:    log,
		keys:   resolver,
		store:  store,
		bus:    b,
		notes:  notes,
		chats:  chats,
		saver:  pipeline,
		live:   rec,
		stream: stream,
		Mode:   ModeOnline,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(context.Background(), "switched mode", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// track updates the mode from the outcome of a remote call.
func (a *App) track(err error) error {
	switch {
	case err == nil:
		a.setMode(ModeOnline)
	case services.IsUnavailable(err):
		a.setMode(ModeOffline)
	}
	return err
}

// Run starts the live stream and the reconciler, then blocks in the REPL
// until the user exits. Pending edits are flushed before returning.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.stream.Run(gctx) })
	g.Go(func() error { return a.live.Run(gctx, a.stream.Events()) })
	signals, unsubscribe := a.bus.Subscribe(64)
	g.Go(func() error {
		a.watchSignals(gctx, signals)
		return nil
	})

	if _, err := a.notes.ListNotes(ctx, false); a.track(err) != nil {
		a.log.Warn(ctx, "initial notes load failed", "error", err)
	}
	if _, err := a.chats.Conversations(ctx, false); a.track(err) != nil {
		a.log.Warn(ctx, "initial conversations load failed", "error", err)
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))

	cancel()
	unsubscribe()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn(ctx, "background task stopped", "error", err)
	}
	return a.Close()
}

// Close flushes pending edits and releases the cache backend.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.saver.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush pending edits: %w", err))
	}
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) status() string {
	s := string(a.mode())
	if id := a.store.ActiveNote(); id != uuid.Nil {
		if n, ok := a.store.Note(id); ok {
			s += " | " + shortTitle(n.Title)
		}
	}
	if id := a.store.ActiveConversation(); id != uuid.Nil {
		if c, ok := a.store.Conversation(id); ok {
			s += " | #" + shortTitle(c.Name)
		}
	}
	if n := len(a.store.Failed()); n > 0 {
		s += fmt.Sprintf(" | %d unsent", n)
	}
	return s
}
