// Package cli parses command-line arguments, validates user input and
// carries process-level concerns like exit codes. It translates flags into
// the application's run configuration.
package cli
