// Package todos carries build metadata for the todos service.
package todos

// Version is the release version, without a leading "v".
const Version = "0.1.0"
