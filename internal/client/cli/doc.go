// Package cli provides the interactive GophDrive command-line client.
//
// It wires configuration, the local cache, the HTTP API, the live socket
// stream and the sync engine behind a small REPL. Notes are edited through
// the save pipeline, so edits are committed in the background after a quiet
// period and kept locally when the server cannot be reached.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// and flushes pending edits before returning. See runREPL for the command set.
package cli
