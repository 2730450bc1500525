// Package client contains the client-side transport for gophdrive.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the API interface) covering the
//     notes and chat endpoints the sync engine needs.
//  2. A JSON-over-HTTP implementation (see HTTPClient) that injects the API
//     key, unwraps the {status, message, code, data} envelope and maps
//     failures to sentinel errors.
//  3. A websocket event stream (see SocketStream) that decodes frames into
//     the typed Event union and reconnects with exponential backoff.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) for the cache
//     database, applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound, ErrRemote.
//
// Concurrency & Contexts
//
// HTTPClient and SocketStream are safe for concurrent use. All operations
// accept context.Context and honor cancellation and timeouts.
package client
