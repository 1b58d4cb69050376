// Package hcl provides the HCL implementation of config.Loader. It parses
// campaign and sample blocks from .hcl files and translates them into the
// format-agnostic config.Model.
package hcl
