// Package memory provides in-memory implementations of the storage ports.
// They back tests and the --ephemeral mode, where nothing survives a restart.
package memory
