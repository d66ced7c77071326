// Package session keeps transcripts of the exchanges served by a process.
//
// The HTTP server appends each request log and its continuation under the
// session identifier supplied by the client. Two backends are provided:
// InMemoryStore for tests and demos, and SQLiteStore for a transcript that
// survives restarts.
package session
