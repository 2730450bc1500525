package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to. Each
// handler receives the rest of the line after the command word.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Notes(ctx context.Context, args string) error
	Open(ctx context.Context, args string) error
	Title(ctx context.Context, args string) error
	Edit(ctx context.Context, args string) error
	Save(ctx context.Context, args string) error
	CloseNote(ctx context.Context, args string) error
	New(ctx context.Context, args string) error
	Type(ctx context.Context, args string) error
	Pin(ctx context.Context, args string) error
	Trash(ctx context.Context, args string) error
	Restore(ctx context.Context, args string) error
	Delete(ctx context.Context, args string) error
	Share(ctx context.Context, args string) error
	Unshare(ctx context.Context, args string) error
	Chats(ctx context.Context, args string) error
	Chat(ctx context.Context, args string) error
	Send(ctx context.Context, args string) error
	Older(ctx context.Context, args string) error
	Refresh(ctx context.Context, args string) error
	Failed(ctx context.Context, args string) error
}

const helpText = `Notes:
  notes [trash|archive]     list notes
  open <id>                 open a note for editing
  title <text>              rename the open note
  edit <text>               replace the open note's content (\n for newline)
  save                      commit pending edits now
  close                     save and close the open note
  new <type> <title>        create a note (text, rich, checklist, md, code)
  type <type>               change the open note's type
  pin | unpin [id]          pin or unpin a note
  trash | archive [id]      move a note to the trash or archive
  restore [id]              restore a note from the trash or archive
  delete [id]               delete a note permanently
  share <email> [rw]        share the open note
  unshare <email>           remove a participant from the open note
Chat:
  chats                     list conversations
  chat <id>                 open a conversation
  send <text>               send a message to the open conversation
  older                     load older messages
General:
  refresh                   refetch the notes and conversations lists
  failed                    list documents with unsent edits
  exit | quit               leave the program`

// runREPL starts a simple read–eval–print loop for the GophDrive CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a' with the rest of the line.
// Unknown commands are reported back to the user. The loop exits on scanner
// EOF, when ctx is done, or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gd> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "notes", "l", "ls":
			err = a.Notes(ctx, rest)
		case "open", "o":
			err = a.Open(ctx, rest)
		case "title":
			err = a.Title(ctx, rest)
		case "edit", "e":
			err = a.Edit(ctx, rest)
		case "save":
			err = a.Save(ctx, rest)
		case "close":
			err = a.CloseNote(ctx, rest)
		case "new":
			err = a.New(ctx, rest)
		case "type":
			err = a.Type(ctx, rest)
		case "pin":
			err = a.Pin(ctx, "on "+rest)
		case "unpin":
			err = a.Pin(ctx, "off "+rest)
		case "trash":
			err = a.Trash(ctx, "trash "+rest)
		case "archive":
			err = a.Trash(ctx, "archive "+rest)
		case "restore":
			err = a.Restore(ctx, rest)
		case "delete":
			err = a.Delete(ctx, rest)
		case "share":
			err = a.Share(ctx, rest)
		case "unshare":
			err = a.Unshare(ctx, rest)

		case "chats":
			err = a.Chats(ctx, rest)
		case "chat", "c":
			err = a.Chat(ctx, rest)
		case "send", "s":
			err = a.Send(ctx, rest)
		case "older":
			err = a.Older(ctx, rest)

		case "refresh", "r":
			err = a.Refresh(ctx, rest)
		case "failed":
			err = a.Failed(ctx, rest)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
