// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing chat histories and stub agents. They are not
// intended for production usage.
package testutil
