// Package app contains the campaign lifecycle: load the configuration, build
// the task tree, then plan, inspect or dispatch it. It is decoupled from any
// entrypoint like the CLI.
package app
