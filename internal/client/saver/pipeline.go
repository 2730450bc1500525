package saver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/codec"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultDebounce      = 2 * time.Second
	defaultCommitTimeout = 30 * time.Second
)

type Deps struct {
	API      client.API
	Cache    cache.Repository
	Keys     *keys.Resolver
	Store    *state.Store
	Bus      bus.Publisher
	Log      logging.Logger
	Registry *Registry
	// Debounce is the quiet period after the last edit before a commit.
	Debounce time.Duration
	// CommitTimeout bounds the remote write of a single commit.
	CommitTimeout time.Duration
}

type Pipeline struct {
	api      client.API
	cache    cache.Repository
	keys     *keys.Resolver
	store    *state.Store
	bus      bus.Publisher
	log      logging.Logger
	registry *Registry

	debounce      time.Duration
	commitTimeout time.Duration

	// wg counts armed timers and running timer commits.
	wg sync.WaitGroup
}

func NewPipeline(d Deps) *Pipeline {
	p := &Pipeline{
		api:           d.API,
		cache:         d.Cache,
		keys:          d.Keys,
		store:         d.Store,
		bus:           d.Bus,
		log:           d.Log,
		registry:      d.Registry,
		debounce:      d.Debounce,
		commitTimeout: d.CommitTimeout,
	}
	if p.bus == nil {
		p.bus = bus.Discard{}
	}
	if p.log == nil {
		p.log = logging.Nop()
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}
	if p.debounce <= 0 {
		p.debounce = DefaultDebounce
	}
	if p.commitTimeout <= 0 {
		p.commitTimeout = defaultCommitTimeout
	}
	return p
}

// Open registers the note for editing. The last confirmed values are the
// title and content currently held in the store. Opening an open note is a
// no-op.
func (p *Pipeline) Open(id uuid.UUID) error {
	n, ok := p.store.Note(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	content := ""
	if v, ok := p.store.Content(id); ok && !v.Unreadable {
		content = v.Content
	}
	if _, created := p.registry.open(n, content); created {
		p.log.Debug(context.Background(), "note opened for editing", "note", id)
	}
	return nil
}

func (p *Pipeline) IsOpen(id uuid.UUID) bool {
	_, ok := p.registry.get(id)
	return ok
}

// State reports the save state of a track of an open note.
func (p *Pipeline) State(id uuid.UUID, t models.Track) (models.SaveState, bool) {
	d, ok := p.registry.get(id)
	if !ok {
		return models.SaveStateSynced, false
	}
	return d.snapshot(t).state, true
}

// Close commits pending edits and releases the note. On a failed commit
// the note stays open so the edit can be retried.
func (p *Pipeline) Close(ctx context.Context, id uuid.UUID) error {
	if err := p.Flush(ctx, id); err != nil {
		return err
	}
	if d, ok := p.registry.release(id); ok {
		p.cancelTimer(d)
	}
	return nil
}

// Discard releases the note without saving. Used when the note is gone.
func (p *Pipeline) Discard(id uuid.UUID) {
	if d, ok := p.registry.release(id); ok {
		p.cancelTimer(d)
	}
}

// Shutdown closes every open note.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range p.registry.ids() {
		if err := p.Close(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	p.wg.Wait()
	return errors.Join(errs...)
}

// Wait blocks until armed debounce timers have fired and their commits
// have finished.
func (p *Pipeline) Wait() { p.wg.Wait() }

func (p *Pipeline) writable(id uuid.UUID) error {
	n, ok := p.store.Note(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	if !n.CanWrite(p.keys.UserID()) {
		return fmt.Errorf("note %s: %w", id, common.ErrReadOnly)
	}
	return nil
}

func (p *Pipeline) EditTitle(id uuid.UUID, title string) error {
	d, ok := p.registry.get(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrDocumentNotOpen)
	}
	if err := p.writable(id); err != nil {
		return err
	}

	p.markDirty(d, models.TrackTitle, title)
	p.store.UpdateNote(id, func(n *models.Note) { n.Title = title })
	p.bus.Publish(bus.TitleChanged{Note: id})
	p.bus.Publish(bus.NotesListChanged{})

	p.schedule(d)
	return nil
}

func (p *Pipeline) EditContent(id uuid.UUID, content string) error {
	d, ok := p.registry.get(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrDocumentNotOpen)
	}
	if err := p.writable(id); err != nil {
		return err
	}
	if v, ok := p.store.Content(id); ok && v.Unreadable {
		return fmt.Errorf("note %s content is unreadable: %w", id, common.ErrReadOnly)
	}

	d.mu.Lock()
	typ := d.typ
	d.mu.Unlock()

	p.markDirty(d, models.TrackContent, content)
	if !p.store.UpdateContent(id, func(v *state.ContentView) { v.Content = content }) {
		p.store.SetContent(state.ContentView{NoteContent: models.NoteContent{NoteID: id, Type: typ, Content: content}})
	}
	p.store.UpdateNote(id, func(n *models.Note) { n.Preview = codec.DerivePreview(content, typ) })
	p.bus.Publish(bus.ContentChanged{Note: id})

	p.schedule(d)
	return nil
}

func (p *Pipeline) markDirty(d *document, t models.Track, value string) {
	d.mu.Lock()
	tr := &d.tracks[t]
	tr.pending = value
	tr.dirty = true
	saving := tr.state == models.SaveStateSaving
	d.mu.Unlock()

	// a commit in flight moves the track on when it finishes
	if !saving {
		p.transition(d, t, models.SaveStateDirty)
	}
}

func (p *Pipeline) transition(d *document, t models.Track, s models.SaveState) {
	d.mu.Lock()
	changed := d.tracks[t].state != s
	d.tracks[t].state = s
	d.mu.Unlock()

	p.store.SetSynced(d.id, t, s == models.SaveStateSynced)
	if changed {
		p.bus.Publish(bus.SyncStateChanged{Note: d.id, Track: t, State: s})
	}
}

// schedule (re)arms the note's debounce timer, superseding any commit
// scheduled earlier.
func (p *Pipeline) schedule(d *document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil && d.timer.Stop() {
		p.wg.Done()
	}
	p.wg.Add(1)
	d.timer = time.AfterFunc(p.debounce, func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.commitTimeout)
		defer cancel()
		// failures are logged and published by commitTrack
		p.commit(ctx, d)
	})
}

func (p *Pipeline) cancelTimer(d *document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil && d.timer.Stop() {
		p.wg.Done()
	}
	d.timer = nil
}

// Flush commits pending edits of the note now instead of waiting for the
// debounce. The commit is not cancelled with ctx.
func (p *Pipeline) Flush(ctx context.Context, id uuid.UUID) error {
	d, ok := p.registry.get(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrDocumentNotOpen)
	}
	p.cancelTimer(d)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.commitTimeout)
	defer cancel()
	return p.commit(ctx, d)
}

// commit saves both tracks of d under the note's save lock.
func (p *Pipeline) commit(ctx context.Context, d *document) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	var errs []error
	for _, t := range []models.Track{models.TrackTitle, models.TrackContent} {
		if err := p.commitTrack(ctx, d, t); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		p.store.ClearFailed(d.id)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) commitTrack(ctx context.Context, d *document, t models.Track) error {
	d.mu.Lock()
	tr := d.tracks[t]
	if !tr.dirty {
		d.mu.Unlock()
		return nil
	}
	if tr.pending == tr.confirmed {
		d.tracks[t].dirty = false
		d.mu.Unlock()
		p.transition(d, t, models.SaveStateSynced)
		return nil
	}
	value, typ, participants := tr.pending, d.typ, d.participants
	d.mu.Unlock()

	p.transition(d, t, models.SaveStateSaving)

	if n, ok := p.store.Note(d.id); ok {
		participants = n.Participants
	}
	preview, err := p.write(ctx, d.id, t, typ, participants, value)
	if err != nil {
		p.transition(d, t, models.SaveStateFailed)
		p.store.MarkFailed(d.id)
		p.bus.Publish(bus.SaveFailed{Document: d.id, Track: t, Err: err})
		p.log.Error(ctx, "save failed", "note", d.id, "track", t.String(), "error", err)
		return fmt.Errorf("save %s: %w", t, err)
	}

	d.mu.Lock()
	d.tracks[t].confirmed = value
	again := d.tracks[t].pending != value
	d.tracks[t].dirty = again
	d.mu.Unlock()

	if again {
		p.transition(d, t, models.SaveStateDirty)
	} else {
		p.transition(d, t, models.SaveStateSynced)
	}
	p.saved(ctx, d.id, t, typ, value, preview, !again)
	return nil
}

// write encrypts value under the note's content key and sends it. For the
// content track it returns the derived preview.
func (p *Pipeline) write(ctx context.Context, id uuid.UUID, t models.Track, typ models.NoteType, participants []models.Participant, value string) (string, error) {
	key, err := p.keys.ContentKey(participants)
	if err != nil {
		return "", err
	}
	enc, err := codec.Encrypt(value, key)
	if err != nil {
		return "", err
	}

	if t == models.TrackTitle {
		return "", p.api.EditNoteTitle(ctx, id, enc)
	}

	preview := codec.DerivePreview(value, typ)
	encPreview, err := codec.Encrypt(preview, key)
	if err != nil {
		return "", err
	}
	req := client.EditNoteContentRequest{ID: id, Type: typ, Content: enc, Preview: encPreview}
	return preview, p.api.EditNoteContent(ctx, req)
}

// saved records a confirmed write in the store and the content cache.
// current reports whether value is still the latest local edit; when it is
// not, the list entry keeps showing the newer edit.
func (p *Pipeline) saved(ctx context.Context, id uuid.UUID, t models.Track, typ models.NoteType, value, preview string, current bool) {
	now := time.Now().UnixMilli()
	me := p.keys.UserID()

	p.store.UpdateNote(id, func(n *models.Note) {
		n.EditedTimestamp = now
		if !current {
			return
		}
		switch t {
		case models.TrackTitle:
			n.Title = value
		case models.TrackContent:
			n.Preview = preview
		}
	})
	if t == models.TrackContent {
		p.store.UpdateContent(id, func(v *state.ContentView) {
			v.EditorID = me
			v.EditedTimestamp = now
			v.Preview = preview
		})
		nc := models.NoteContent{NoteID: id, Type: typ, Content: value, Preview: preview, EditorID: me, EditedTimestamp: now}
		if err := cache.SetJSON(ctx, p.cache, cache.DomainNotes, cache.NoteContentKey(id), nc); err != nil {
			p.log.Warn(ctx, "content cache write failed", "note", id, "error", err)
		}
	}
	p.bus.Publish(bus.NotesListChanged{})
}

// Pending returns the unsaved local value of a track of an open note. A
// track being saved stays unsaved until the write is confirmed.
func (p *Pipeline) Pending(id uuid.UUID, t models.Track) (string, bool) {
	d, ok := p.registry.get(id)
	if !ok {
		return "", false
	}
	tr := d.snapshot(t)
	if !tr.dirty {
		return "", false
	}
	return tr.pending, true
}

// ApplyRemote runs apply under the note's save lock and records value as
// confirmed. It returns false without calling apply when the track holds
// an edit that has not been saved yet. Notes that are not open are applied
// directly.
func (p *Pipeline) ApplyRemote(id uuid.UUID, t models.Track, value string, apply func()) bool {
	d, ok := p.registry.get(id)
	if !ok {
		apply()
		return true
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	d.mu.Lock()
	if d.tracks[t].dirty {
		d.mu.Unlock()
		return false
	}
	d.tracks[t].pending = value
	d.tracks[t].confirmed = value
	d.mu.Unlock()

	apply()
	p.transition(d, t, models.SaveStateSynced)
	return true
}

// ChangeType converts an open note to typ, re-encrypting its current
// content with a preview derived for the new type.
func (p *Pipeline) ChangeType(ctx context.Context, id uuid.UUID, typ models.NoteType) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: %q", common.ErrInvalidNoteType, typ)
	}
	d, ok := p.registry.get(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrDocumentNotOpen)
	}
	n, ok := p.store.Note(id)
	if !ok {
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	if !n.CanWrite(p.keys.UserID()) {
		return fmt.Errorf("note %s: %w", id, common.ErrReadOnly)
	}
	p.cancelTimer(d)

	d.lock.Lock()
	defer d.lock.Unlock()

	content := d.snapshot(models.TrackContent).pending
	key, err := p.keys.ContentKey(n.Participants)
	if err != nil {
		return err
	}
	preview := codec.DerivePreview(content, typ)
	enc, err := codec.Encrypt(content, key)
	if err != nil {
		return err
	}
	encPreview, err := codec.Encrypt(preview, key)
	if err != nil {
		return err
	}

	req := client.EditNoteContentRequest{ID: id, Type: typ, Content: enc, Preview: encPreview}
	if err := p.api.ChangeNoteType(ctx, req); err != nil {
		p.store.MarkFailed(id)
		p.bus.Publish(bus.SaveFailed{Document: id, Track: models.TrackContent, Err: err})
		p.log.Error(ctx, "note type change failed", "note", id, "type", string(typ), "error", err)
		return fmt.Errorf("change type: %w", err)
	}

	d.mu.Lock()
	d.typ = typ
	d.tracks[models.TrackContent].confirmed = content
	again := d.tracks[models.TrackContent].pending != content
	d.tracks[models.TrackContent].dirty = again
	d.mu.Unlock()

	p.store.UpdateNote(id, func(n *models.Note) { n.Type = typ })
	p.store.UpdateContent(id, func(v *state.ContentView) { v.Type = typ })
	if again {
		p.transition(d, models.TrackContent, models.SaveStateDirty)
	} else {
		p.transition(d, models.TrackContent, models.SaveStateSynced)
	}
	p.saved(ctx, id, models.TrackContent, typ, content, preview, !again)
	p.bus.Publish(bus.ContentChanged{Note: id})

	if again || d.snapshot(models.TrackTitle).dirty {
		p.schedule(d)
	}
	return nil
}
