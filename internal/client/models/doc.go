// Package models defines the client-side data model shared by the notes and
// chat subsystems: decrypted documents as the UI sees them, their encrypted
// wire forms as the remote API returns them, and per-document sync state.
//
// Plaintext types (Note, NoteContent, Conversation, ChatMessage) are what the
// local cache stores. Remote* types carry ciphertext and are never cached.
package models
