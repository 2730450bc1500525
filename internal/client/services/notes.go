package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/dmitrijs2005/gophdrive/internal/client/client"
	"github.com/dmitrijs2005/gophdrive/internal/client/codec"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/client/repositories/cache"
	"github.com/dmitrijs2005/gophdrive/internal/client/state"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

type NotesResult struct {
	Notes []models.Note
	Tags  []models.Tag
	Cache bool
}

type ContentResult struct {
	Content state.ContentView
	Cache   bool
	// Applied is false when the note was no longer active or held an
	// unsaved local edit, so the store kept its current value.
	Applied bool
}

type NoteService interface {
	ListNotes(ctx context.Context, force bool) (NotesResult, error)
	RefreshNotes(ctx context.Context) (NotesResult, error)
	Content(ctx context.Context, id uuid.UUID, force bool) (ContentResult, error)
	RefreshContent(ctx context.Context, id uuid.UUID) (ContentResult, error)

	Create(ctx context.Context, title string, typ models.NoteType) (models.Note, error)
	SetPinned(ctx context.Context, id uuid.UUID, pinned bool) error
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	Trash(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddTag(ctx context.Context, note, tag uuid.UUID) error
	RemoveTag(ctx context.Context, note, tag uuid.UUID) error
	AddParticipant(ctx context.Context, note uuid.UUID, email string, write bool) error
	RemoveParticipant(ctx context.Context, note, user uuid.UUID) error
	SetParticipantPermissions(ctx context.Context, note, user uuid.UUID, write bool) error

	// Forget purges a note from state and cache, signalling NavigateAway
	// when it was the active note.
	Forget(ctx context.Context, id uuid.UUID, reason string) bool
}

type notesSnapshot struct {
	Notes []models.Note `json:"notes"`
	Tags  []models.Tag  `json:"tags"`
}

type noteService struct {
	*base
}

func NewNoteService(d Deps) NoteService {
	return &noteService{base: newBase(d)}
}

func (s *noteService) ListNotes(ctx context.Context, force bool) (NotesResult, error) {
	if !force {
		snap, ok, err := cache.GetJSON[notesSnapshot](ctx, s.Cache, cache.DomainNotes, cache.NotesAndTagsKey)
		if err != nil {
			s.Log.Warn(ctx, "notes cache read failed", "error", err)
		}
		if ok {
			s.Store.ReplaceNotes(snap.Notes, snap.Tags, s.keepLocal)
			s.Bus.Publish(bus.NotesListChanged{})
			s.revalidate(ctx, "notes", func(ctx context.Context) error {
				_, err := s.RefreshNotes(ctx)
				return err
			})
			return NotesResult{Notes: s.Store.Notes(), Tags: s.Store.Tags(), Cache: true}, nil
		}
	}
	return s.RefreshNotes(ctx)
}

func (s *noteService) RefreshNotes(ctx context.Context) (NotesResult, error) {
	v, err, _ := s.sf.Do("notes", func() (any, error) {
		return s.fetchNotes(ctx)
	})
	if err != nil {
		s.Log.Error(ctx, "notes refresh failed", "error", err)
		return NotesResult{}, err
	}
	return v.(NotesResult), nil
}

func (s *noteService) fetchNotes(ctx context.Context) (NotesResult, error) {
	remote, err := s.API.Notes(ctx)
	if err != nil {
		return NotesResult{}, fmt.Errorf("fetch notes: %w", err)
	}
	remoteTags, err := s.API.NoteTags(ctx)
	if err != nil {
		return NotesResult{}, fmt.Errorf("fetch tags: %w", err)
	}

	tags := make([]models.Tag, 0, len(remoteTags))
	for _, rt := range remoteTags {
		tags = append(tags, s.decryptTag(ctx, rt))
	}

	notes := make([]models.Note, 0, len(remote))
	for _, rn := range remote {
		notes = append(notes, s.decryptNote(ctx, rn))
	}
	state.SortNotes(notes)

	if err := cache.SetJSON(ctx, s.Cache, cache.DomainNotes, cache.NotesAndTagsKey, notesSnapshot{Notes: notes, Tags: tags}); err != nil {
		s.Log.Warn(ctx, "notes cache write failed", "error", err)
	}
	s.Store.ReplaceNotes(notes, tags, s.keepLocal)
	s.dropStaleContent(ctx, notes)
	s.Bus.Publish(bus.NotesListChanged{})

	return NotesResult{Notes: s.Store.Notes(), Tags: tags}, nil
}

// keepLocal puts unsaved local edits back over a fetched list entry.
func (s *noteService) keepLocal(n *models.Note) {
	if title, ok := s.Editor.Pending(n.ID, models.TrackTitle); ok {
		n.Title = title
	}
	if content, ok := s.Editor.Pending(n.ID, models.TrackContent); ok {
		n.Preview = codec.DerivePreview(content, n.Type)
	}
}

func (s *noteService) decryptTag(ctx context.Context, rt models.RemoteTag) models.Tag {
	name, err := s.Keys.DecryptTagName(rt.Name)
	if err != nil {
		s.Log.Debug(ctx, "tag name unreadable", "tag", rt.ID, "error", err)
	}
	return models.Tag{ID: rt.ID, Name: name, Favorite: rt.Favorite, EditedTimestamp: rt.EditedTimestamp}
}

// decryptNote keeps the note even when its title or preview is unreadable.
func (s *noteService) decryptNote(ctx context.Context, rn models.RemoteNote) models.Note {
	n := models.Note{
		ID:               rn.ID,
		OwnerID:          rn.OwnerID,
		Type:             rn.Type,
		Pinned:           rn.Pinned,
		Favorite:         rn.Favorite,
		Trash:            rn.Trash,
		Archive:          rn.Archive,
		Participants:     slices.Clone(rn.Participants),
		CreatedTimestamp: rn.CreatedTimestamp,
		EditedTimestamp:  rn.EditedTimestamp,
	}
	for _, t := range rn.Tags {
		n.Tags = append(n.Tags, t.ID)
	}

	key, err := s.Keys.ContentKey(rn.Participants)
	if err != nil {
		s.Log.Warn(ctx, "note key unavailable", "note", rn.ID, "error", err)
		return n
	}
	n.Title = codec.DecryptString(rn.Title, key)
	n.Preview = codec.DecryptString(rn.Preview, key)
	return n
}

// dropStaleContent removes cached content of notes no longer in the list.
func (s *noteService) dropStaleContent(ctx context.Context, notes []models.Note) {
	live := make(map[uuid.UUID]struct{}, len(notes))
	for _, n := range notes {
		live[n.ID] = struct{}{}
	}
	keys, err := s.Cache.Keys(ctx, cache.DomainNotes)
	if err != nil {
		s.Log.Warn(ctx, "notes cache listing failed", "error", err)
		return
	}
	var stale []string
	for _, k := range keys {
		id, ok := cache.ParseNoteContentKey(k)
		if !ok {
			continue
		}
		if _, ok := live[id]; !ok {
			stale = append(stale, k)
		}
	}
	if err := s.Cache.Remove(ctx, cache.DomainNotes, stale...); err != nil {
		s.Log.Warn(ctx, "stale content cleanup failed", "error", err)
	}
}

func (s *noteService) persistList(ctx context.Context) {
	snap := notesSnapshot{Notes: s.Store.Notes(), Tags: s.Store.Tags()}
	if err := cache.SetJSON(ctx, s.Cache, cache.DomainNotes, cache.NotesAndTagsKey, snap); err != nil {
		s.Log.Warn(ctx, "notes cache write failed", "error", err)
	}
}

func (s *noteService) Content(ctx context.Context, id uuid.UUID, force bool) (ContentResult, error) {
	if !force {
		nc, ok, err := cache.GetJSON[models.NoteContent](ctx, s.Cache, cache.DomainNotes, cache.NoteContentKey(id))
		if err != nil {
			s.Log.Warn(ctx, "content cache read failed", "note", id, "error", err)
		}
		if ok {
			view := state.ContentView{NoteContent: nc}
			applied := s.applyContent(id, view)
			s.revalidate(ctx, "content:"+id.String(), func(ctx context.Context) error {
				_, err := s.RefreshContent(ctx, id)
				return err
			})
			return ContentResult{Content: view, Cache: true, Applied: applied}, nil
		}
	}
	return s.RefreshContent(ctx, id)
}

func (s *noteService) RefreshContent(ctx context.Context, id uuid.UUID) (ContentResult, error) {
	v, err, _ := s.sf.Do("content:"+id.String(), func() (any, error) {
		return s.fetchContent(ctx, id)
	})
	if err != nil {
		s.Log.Error(ctx, "content refresh failed", "note", id, "error", err)
		return ContentResult{}, err
	}
	view := v.(state.ContentView)
	return ContentResult{Content: view, Applied: s.applyContent(id, view)}, nil
}

func (s *noteService) lookupNote(ctx context.Context, id uuid.UUID) (models.Note, error) {
	if n, ok := s.Store.Note(id); ok {
		return n, nil
	}
	if _, err := s.RefreshNotes(ctx); err != nil {
		return models.Note{}, err
	}
	if n, ok := s.Store.Note(id); ok {
		return n, nil
	}
	return models.Note{}, fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
}

// fetchContent returns the decrypted content. Unreadable content is
// returned marked as such and never cached.
func (s *noteService) fetchContent(ctx context.Context, id uuid.UUID) (state.ContentView, error) {
	note, err := s.lookupNote(ctx, id)
	if err != nil {
		return state.ContentView{}, err
	}
	rc, err := s.API.NoteContent(ctx, id)
	if err != nil {
		return state.ContentView{}, fmt.Errorf("fetch content: %w", err)
	}

	view := state.ContentView{NoteContent: models.NoteContent{
		NoteID:          id,
		Type:            rc.Type,
		EditorID:        rc.EditorID,
		EditedTimestamp: rc.EditedTimestamp,
	}}

	key, err := s.Keys.ContentKey(note.Participants)
	if err != nil {
		s.Log.Warn(ctx, "note key unavailable", "note", id, "error", err)
		view.Unreadable = true
		return view, nil
	}

	content := codec.Decrypt(rc.Content, key)
	if content.Failed() {
		s.Log.Warn(ctx, "note content unreadable", "note", id, "error", content.Err)
		view.Unreadable = true
		return view, nil
	}
	view.Content = content.Plaintext
	view.Preview = codec.DecryptString(rc.Preview, key)

	if err := cache.SetJSON(ctx, s.Cache, cache.DomainNotes, cache.NoteContentKey(id), view.NoteContent); err != nil {
		s.Log.Warn(ctx, "content cache write failed", "note", id, "error", err)
	}
	return view, nil
}

// applyContent writes view into the store if id is still the active note
// and the editor holds no pending local content.
func (s *noteService) applyContent(id uuid.UUID, view state.ContentView) bool {
	if !s.Store.IsActiveNote(id) {
		return false
	}
	applied := false
	s.Editor.ApplyRemote(id, models.TrackContent, view.Content, func() {
		if !s.Store.SetContentIfActive(view) {
			return
		}
		applied = true
		s.Store.SetSynced(id, models.TrackContent, true)
		s.Bus.Publish(bus.ContentChanged{Note: id})
	})
	return applied
}

func (s *noteService) Create(ctx context.Context, title string, typ models.NoteType) (models.Note, error) {
	if !typ.Valid() {
		return models.Note{}, common.ErrInvalidNoteType
	}
	id := uuid.New()
	key := keys.GenerateContentKey()

	meta, err := s.Keys.WrapForSelf(key)
	if err != nil {
		return models.Note{}, fmt.Errorf("wrap note key: %w", err)
	}
	encTitle, err := codec.Encrypt(title, key)
	if err != nil {
		return models.Note{}, err
	}
	if err := s.API.CreateNote(ctx, client.CreateNoteRequest{ID: id, Title: encTitle, Metadata: meta}); err != nil {
		return models.Note{}, fmt.Errorf("create note: %w", err)
	}
	if typ != models.NoteTypeText {
		if err := s.API.ChangeNoteType(ctx, client.EditNoteContentRequest{ID: id, Type: typ}); err != nil {
			return models.Note{}, fmt.Errorf("set note type: %w", err)
		}
	}

	now := nowMillis()
	n := models.Note{
		ID:      id,
		OwnerID: s.Keys.UserID(),
		Type:    typ,
		Title:   title,
		Participants: []models.Participant{{
			UserID:         s.Keys.UserID(),
			PublicKey:      s.Keys.PublicKey(),
			Metadata:       meta,
			IsOwner:        true,
			Permissions:    true,
			AddedTimestamp: now,
		}},
		CreatedTimestamp: now,
		EditedTimestamp:  now,
	}
	s.Store.UpsertNote(n)
	s.persistList(ctx)
	s.Bus.Publish(bus.NotesListChanged{})
	return n, nil
}

// mutate runs a remote call and, on success, applies fn to the stored note.
func (s *noteService) mutate(ctx context.Context, id uuid.UUID, op string, call func() error, fn func(*models.Note)) error {
	if err := call(); err != nil {
		s.Log.Error(ctx, "note update failed", "op", op, "note", id, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if s.Store.UpdateNote(id, fn) {
		s.persistList(ctx)
		s.Bus.Publish(bus.NotesListChanged{})
	}
	return nil
}

func (s *noteService) SetPinned(ctx context.Context, id uuid.UUID, pinned bool) error {
	return s.mutate(ctx, id, "pin", func() error { return s.API.SetNotePinned(ctx, id, pinned) },
		func(n *models.Note) { n.Pinned = pinned })
}

func (s *noteService) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return s.mutate(ctx, id, "favorite", func() error { return s.API.SetNoteFavorite(ctx, id, favorite) },
		func(n *models.Note) { n.Favorite = favorite })
}

func (s *noteService) Trash(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, "trash", func() error { return s.API.TrashNote(ctx, id) },
		func(n *models.Note) { n.Trash = true })
}

func (s *noteService) Archive(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, "archive", func() error { return s.API.ArchiveNote(ctx, id) },
		func(n *models.Note) { n.Archive = true })
}

func (s *noteService) Restore(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, "restore", func() error { return s.API.RestoreNote(ctx, id) },
		func(n *models.Note) { n.Trash, n.Archive = false, false })
}

func (s *noteService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.API.DeleteNote(ctx, id); err != nil {
		s.Log.Error(ctx, "note delete failed", "note", id, "error", err)
		return fmt.Errorf("delete: %w", err)
	}
	s.Forget(ctx, id, "deleted")
	return nil
}

func (s *noteService) AddTag(ctx context.Context, note, tag uuid.UUID) error {
	return s.mutate(ctx, note, "tag add", func() error { return s.API.AddNoteTag(ctx, note, tag) },
		func(n *models.Note) {
			if !n.HasTag(tag) {
				n.Tags = append(n.Tags, tag)
			}
		})
}

func (s *noteService) RemoveTag(ctx context.Context, note, tag uuid.UUID) error {
	return s.mutate(ctx, note, "tag remove", func() error { return s.API.RemoveNoteTag(ctx, note, tag) },
		func(n *models.Note) {
			n.Tags = slices.DeleteFunc(n.Tags, func(t uuid.UUID) bool { return t == tag })
		})
}

// AddParticipant wraps the note's content key with the invitee's public key.
// The key itself is not rotated.
func (s *noteService) AddParticipant(ctx context.Context, note uuid.UUID, email string, write bool) error {
	n, err := s.lookupNote(ctx, note)
	if err != nil {
		return err
	}
	key, err := s.Keys.ContentKey(n.Participants)
	if err != nil {
		return err
	}
	uk, err := s.API.UserPublicKey(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	meta, err := s.Keys.WrapFor(key, uk.PublicKey)
	if err != nil {
		return fmt.Errorf("wrap key for %s: %w", email, err)
	}

	p := models.Participant{
		UserID:         uk.UserID,
		Email:          uk.Email,
		PublicKey:      uk.PublicKey,
		Metadata:       meta,
		Permissions:    write,
		AddedTimestamp: nowMillis(),
	}
	req := client.AddParticipantRequest{Note: note, ContactID: uk.UserID, Metadata: meta, PermissionsWrite: write}
	return s.mutate(ctx, note, "participant add", func() error { return s.API.AddNoteParticipant(ctx, req) },
		func(n *models.Note) { n.Participants = models.UpsertParticipant(n.Participants, p) })
}

func (s *noteService) RemoveParticipant(ctx context.Context, note, user uuid.UUID) error {
	if err := s.API.RemoveNoteParticipant(ctx, note, user); err != nil {
		s.Log.Error(ctx, "participant remove failed", "note", note, "error", err)
		return fmt.Errorf("participant remove: %w", err)
	}
	if user == s.Keys.UserID() {
		s.Forget(ctx, note, "left")
		return nil
	}
	if s.Store.UpdateNote(note, func(n *models.Note) {
		n.Participants = models.RemoveParticipant(n.Participants, user)
	}) {
		s.persistList(ctx)
		s.Bus.Publish(bus.NotesListChanged{})
	}
	return nil
}

func (s *noteService) SetParticipantPermissions(ctx context.Context, note, user uuid.UUID, write bool) error {
	return s.mutate(ctx, note, "participant permissions",
		func() error { return s.API.SetNoteParticipantPermissions(ctx, note, user, write) },
		func(n *models.Note) {
			if p, ok := models.FindParticipant(n.Participants, user); ok {
				p.Permissions = write
				n.Participants = models.UpsertParticipant(n.Participants, p)
			}
		})
}

func (s *noteService) Forget(ctx context.Context, id uuid.UUID, reason string) bool {
	wasActive := s.Store.IsActiveNote(id)
	s.Editor.Discard(id)
	removed := s.Store.RemoveNote(id)

	if err := s.Cache.Remove(ctx, cache.DomainNotes, cache.NoteContentKey(id)); err != nil {
		s.Log.Warn(ctx, "content cache purge failed", "note", id, "error", err)
	}
	s.persistList(ctx)

	if wasActive {
		s.Store.SetActiveNote(uuid.Nil)
		s.Bus.Publish(bus.NavigateAway{Document: id, Reason: reason})
	}
	s.Bus.Publish(bus.NotesListChanged{})
	return removed
}

// IsUnavailable reports errors that mean the remote could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, client.ErrUnavailable)
}
