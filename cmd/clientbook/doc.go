// Package main hosts the clientbook CLI entrypoint and command graph.
//
// The Cobra-based command tree lets operators submit numbers, inspect the
// record set, move records through spreadsheet files, check database health,
// scaffold configuration, and run the HTTP chat gateway. It centralizes
// configuration resolution, store opening, and logging setup so subcommands
// only translate flags into calls on the internal packages.
package main
