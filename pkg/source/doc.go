// Package source reads the seeds a run starts from.
//
// A seed is an HTML page (a saved mod list or a live Modrinth collection)
// or a TOML manifest. Pages are scanned for project anchors with
// golang.org/x/net/html; manifests are decoded with BurntSushi/toml.
//
// Failing to read a seed is the one run-fatal condition, so every reader
// here returns a SEED_UNREADABLE [errors.Error] when it cannot produce any
// input at all.
package source
