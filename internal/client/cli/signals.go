package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/client/bus"
	"github.com/google/uuid"
)

// watchSignals reports engine signals the user needs to see while the
// REPL is waiting for input.
func (a *App) watchSignals(ctx context.Context, signals <-chan bus.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-signals:
			if !ok {
				return
			}
			a.handleSignal(s)
		}
	}
}

func (a *App) handleSignal(s bus.Signal) {
	switch s := s.(type) {
	case bus.NavigateAway:
		printlnFn(fmt.Sprintf("Closed %s: %s.", shortID(s.Document), s.Reason))
	case bus.SaveFailed:
		_ = a.track(s.Err)
		printlnFn(fmt.Sprintf("Could not save %s of %s: %v. The edit is kept locally.", s.Track, shortID(s.Document), s.Err))
	case bus.MessagesChanged:
		if !a.store.IsActiveConversation(s.Conversation) {
			return
		}
		if msgs := a.store.Messages(s.Conversation); len(msgs) > 0 && a.markShown(msgs[0].ID) {
			printlnFn(a.formatMessage(msgs[0]))
		}
	}
}

// markShown records id as the newest printed message and reports whether
// it had not been printed yet.
func (a *App) markShown(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastShown == id {
		return false
	}
	a.lastShown = id
	return true
}
