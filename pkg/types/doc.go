// Package types defines the Store and TodoTable interfaces, the todo record
// and payload types, and the standard error values for the todos service.
package types
