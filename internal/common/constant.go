// Package common contains shared constants and sentinel errors used across
// GophDrive client components.
package common

// AuthHeaderName is the HTTP header carrying the session API key on
// outbound API requests and the socket handshake.
const AuthHeaderName = "Authorization"

// PreviewMaxRunes bounds the plaintext preview derived from note content.
const PreviewMaxRunes = 128

// ContentKeySize is the size in bytes of a per-document content key.
const ContentKeySize = 32
