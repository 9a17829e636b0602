// Package cli wires a stateguard.Guard from configuration for the command-line tool.
package cli
