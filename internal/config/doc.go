// Package config defines the format-agnostic campaign model and the Loader
// interface that fills it from configuration files.
//
// The Model is the single source of truth for the app package, which turns
// it into a systematic registry, a sample catalog, a tree configuration and
// a dispatcher. Concrete loaders, such as the HCL one, live in separate
// packages.
package config
