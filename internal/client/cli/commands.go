package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

const (
	shortIDLen   = 8
	titleWidth   = 40
	chatPageShow = 20
)

var errNoActiveNote = errors.New("no note is open, use: open <id>")

func shortID(id uuid.UUID) string { return id.String()[:shortIDLen] }

func shortTitle(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > titleWidth {
		return string(r[:titleWidth-1]) + "…"
	}
	if s == "" {
		return "(untitled)"
	}
	return s
}

// matchID resolves arg as a full UUID or as a unique prefix of one of ids.
func matchID(arg string, ids []uuid.UUID) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	arg = strings.ToLower(arg)
	var found []uuid.UUID
	for _, id := range ids {
		if strings.HasPrefix(id.String(), arg) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("%q: %w", arg, common.ErrorNotFound)
	case 1:
		return found[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%q matches %d items", arg, len(found))
	}
}

// resolveNote returns the note named by arg, or the open note when arg is empty.
func (a *App) resolveNote(arg string) (uuid.UUID, error) {
	if arg == "" {
		id := a.store.ActiveNote()
		if id == uuid.Nil {
			return uuid.Nil, errNoActiveNote
		}
		return id, nil
	}
	notes := a.store.Notes()
	ids := make([]uuid.UUID, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	return matchID(arg, ids)
}

func (a *App) resolveConversation(arg string) (uuid.UUID, error) {
	if arg == "" {
		id := a.store.ActiveConversation()
		if id == uuid.Nil {
			return uuid.Nil, errors.New("no conversation is open, use: chat <id>")
		}
		return id, nil
	}
	convs := a.store.Conversations()
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return matchID(arg, ids)
}

func (a *App) activeNote() (uuid.UUID, error) {
	return a.resolveNote("")
}

func (a *App) Notes(ctx context.Context, args string) error {
	res, err := a.notes.ListNotes(ctx, false)
	if a.track(err) != nil {
		return err
	}

	show := func(n models.Note) bool { return !n.Trash && !n.Archive }
	switch args {
	case "trash":
		show = func(n models.Note) bool { return n.Trash }
	case "archive":
		show = func(n models.Note) bool { return n.Archive }
	case "", "all":
	default:
		return fmt.Errorf("unknown filter %q", args)
	}

	count := 0
	for _, n := range res.Notes {
		if !show(n) {
			continue
		}
		count++
		printlnFn(a.formatNote(n))
	}
	if count == 0 {
		printlnFn("No notes.")
	}
	if res.Cache {
		printlnFn("(cached, refreshing in the background)")
	}
	return nil
}

func (a *App) formatNote(n models.Note) string {
	marks := ""
	if n.Pinned {
		marks += "^"
	}
	if n.Favorite {
		marks += "*"
	}
	if a.store.IsFailed(n.ID) {
		marks += "!"
	}
	line := fmt.Sprintf("%s %-3s [%s] %s", shortID(n.ID), marks, n.Type, shortTitle(n.Title))
	if n.Preview != "" {
		line += "  " + shortTitle(n.Preview)
	}
	return line
}

func (a *App) Open(ctx context.Context, args string) error {
	id, err := a.resolveNote(args)
	if err != nil {
		return err
	}
	if prev := a.store.ActiveNote(); prev != uuid.Nil && prev != id {
		if err := a.closeNote(ctx, prev); err != nil {
			return err
		}
	}

	a.store.SetActiveNote(id)
	res, err := a.notes.Content(ctx, id, false)
	if a.track(err) != nil {
		a.store.SetActiveNote(uuid.Nil)
		return err
	}
	if err := a.saver.Open(id); err != nil {
		return err
	}

	n, _ := a.store.Note(id)
	printlnFn(fmt.Sprintf("# %s [%s]", shortTitle(n.Title), n.Type))
	switch {
	case res.Content.Unreadable:
		printlnFn("(content could not be decrypted, the note is read-only)")
	case !n.CanWrite(a.keys.UserID()):
		printlnFn(res.Content.Content)
		printlnFn("(read-only)")
	default:
		printlnFn(res.Content.Content)
	}
	return nil
}

func (a *App) Title(_ context.Context, args string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	return a.saver.EditTitle(id, args)
}

func (a *App) Edit(_ context.Context, args string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	return a.saver.EditContent(id, unescape(args))
}

func (a *App) Save(ctx context.Context, _ string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	if err := a.track(a.saver.Flush(ctx, id)); err != nil {
		return err
	}
	printlnFn("Saved.")
	return nil
}

func (a *App) closeNote(ctx context.Context, id uuid.UUID) error {
	if err := a.track(a.saver.Close(ctx, id)); err != nil {
		return fmt.Errorf("note %s has unsaved edits: %w", shortID(id), err)
	}
	if a.store.IsActiveNote(id) {
		a.store.SetActiveNote(uuid.Nil)
	}
	return nil
}

func (a *App) CloseNote(ctx context.Context, _ string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	return a.closeNote(ctx, id)
}

func (a *App) New(ctx context.Context, args string) error {
	typArg, title, _ := strings.Cut(args, " ")
	typ, err := models.ParseNoteType(typArg)
	if err != nil {
		return fmt.Errorf("usage: new <type> <title>: %w", err)
	}
	n, err := a.notes.Create(ctx, strings.TrimSpace(title), typ)
	if a.track(err) != nil {
		return err
	}
	printlnFn("Created", shortID(n.ID))
	return a.Open(ctx, n.ID.String())
}

func (a *App) Type(ctx context.Context, args string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	typ, err := models.ParseNoteType(args)
	if err != nil {
		return err
	}
	return a.track(a.saver.ChangeType(ctx, id, typ))
}

func (a *App) Pin(ctx context.Context, args string) error {
	mode, rest, _ := strings.Cut(args, " ")
	id, err := a.resolveNote(strings.TrimSpace(rest))
	if err != nil {
		return err
	}
	return a.track(a.notes.SetPinned(ctx, id, mode == "on"))
}

func (a *App) Trash(ctx context.Context, args string) error {
	mode, rest, _ := strings.Cut(args, " ")
	id, err := a.resolveNote(strings.TrimSpace(rest))
	if err != nil {
		return err
	}
	if mode == "archive" {
		return a.track(a.notes.Archive(ctx, id))
	}
	return a.track(a.notes.Trash(ctx, id))
}

func (a *App) Restore(ctx context.Context, args string) error {
	id, err := a.resolveNote(args)
	if err != nil {
		return err
	}
	return a.track(a.notes.Restore(ctx, id))
}

func (a *App) Delete(ctx context.Context, args string) error {
	id, err := a.resolveNote(args)
	if err != nil {
		return err
	}
	return a.track(a.notes.Delete(ctx, id))
}

func (a *App) Share(ctx context.Context, args string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return errors.New("usage: share <email> [rw]")
	}
	write := len(fields) > 1 && fields[1] == "rw"
	if err := a.track(a.notes.AddParticipant(ctx, id, fields[0], write)); err != nil {
		return err
	}
	printlnFn("Shared with", fields[0])
	return nil
}

func (a *App) Unshare(ctx context.Context, args string) error {
	id, err := a.activeNote()
	if err != nil {
		return err
	}
	n, ok := a.store.Note(id)
	if !ok {
		return fmt.Errorf("note %s: %w", shortID(id), common.ErrorNotFound)
	}
	i := slices.IndexFunc(n.Participants, func(p models.Participant) bool {
		return strings.EqualFold(p.Email, args)
	})
	if i < 0 {
		return fmt.Errorf("participant %q: %w", args, common.ErrorNotFound)
	}
	return a.track(a.notes.RemoveParticipant(ctx, id, n.Participants[i].UserID))
}

func (a *App) Chats(ctx context.Context, _ string) error {
	res, err := a.chats.Conversations(ctx, false)
	if a.track(err) != nil {
		return err
	}
	if len(res.Conversations) == 0 {
		printlnFn("No conversations.")
	}
	for _, c := range res.Conversations {
		line := fmt.Sprintf("%s #%s", shortID(c.ID), shortTitle(c.Name))
		if c.LastMessage != "" {
			line += "  " + shortTitle(c.LastMessage)
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) formatMessage(m models.ChatMessage) string {
	who := m.SenderEmail
	if m.SenderID == a.keys.UserID() {
		who = "me"
	}
	line := fmt.Sprintf("[%s] %s: %s", time.UnixMilli(m.SentTimestamp).Format("01-02 15:04"), who, m.Body)
	if m.Edited {
		line += " (edited)"
	}
	if a.store.IsFailed(m.ID) {
		line += " (not sent)"
	}
	return line
}

// printMessages prints the newest n messages oldest first.
func (a *App) printMessages(msgs []models.ChatMessage, n int) {
	if len(msgs) == 0 {
		return
	}
	a.markShown(msgs[0].ID)
	if len(msgs) > n {
		msgs = msgs[:n]
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		printlnFn(a.formatMessage(msgs[i]))
	}
}

func (a *App) Chat(ctx context.Context, args string) error {
	id, err := a.resolveConversation(args)
	if err != nil {
		return err
	}
	a.store.SetActiveConversation(id)
	res, err := a.chats.Messages(ctx, id, false)
	if a.track(err) != nil {
		return err
	}
	a.printMessages(res.Messages, chatPageShow)
	return nil
}

func (a *App) Send(ctx context.Context, args string) error {
	conv, err := a.resolveConversation("")
	if err != nil {
		return err
	}
	if args == "" {
		return errors.New("usage: send <text>")
	}
	_, err = a.chats.Send(ctx, conv, unescape(args), nil)
	return a.track(err)
}

func (a *App) Older(ctx context.Context, _ string) error {
	conv, err := a.resolveConversation("")
	if err != nil {
		return err
	}
	res, err := a.chats.OlderMessages(ctx, conv)
	if a.track(err) != nil {
		return err
	}
	switch {
	case res.Exhausted:
		printlnFn("No older messages.")
	case len(res.Messages) == 0:
		printlnFn("Older messages are already loaded.")
	default:
		printlnFn(fmt.Sprintf("Loaded %d older messages.", len(res.Messages)))
	}
	return nil
}

func (a *App) Refresh(ctx context.Context, _ string) error {
	if _, err := a.notes.RefreshNotes(ctx); a.track(err) != nil {
		return err
	}
	if _, err := a.chats.RefreshConversations(ctx); a.track(err) != nil {
		return err
	}
	printlnFn("Refreshed.")
	return nil
}

func (a *App) Failed(_ context.Context, _ string) error {
	ids := a.store.Failed()
	if len(ids) == 0 {
		printlnFn("Everything is saved.")
		return nil
	}
	for _, id := range ids {
		if n, ok := a.store.Note(id); ok {
			printlnFn(fmt.Sprintf("note %s %s", shortID(id), shortTitle(n.Title)))
			continue
		}
		if m, ok := a.store.Message(id); ok {
			printlnFn(fmt.Sprintf("message %s %s", shortID(id), shortTitle(m.Body)))
			continue
		}
		printlnFn(shortID(id))
	}
	return nil
}
