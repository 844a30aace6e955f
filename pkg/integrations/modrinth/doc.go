// Package modrinth provides a client for the Modrinth (Labrinth) API v2.
//
// Modrinth needs no key but rejects anonymous traffic, so every request
// carries a descriptive User-Agent. Endpoints used:
//
//   - /project/{id|slug}: project record
//   - /project/{id|slug}/version: versions, optionally filtered by
//     game_versions and loaders (JSON-encoded lists)
//   - /search: relevance search with project_type facets
//
// Versions come back newest first. A version may ship several files;
// [Version.PrimaryFile] picks the one to download.
package modrinth
