// Package integrations provides HTTP clients for the mod registry APIs.
//
// # Overview
//
// This package contains low-level API clients for fetching project metadata
// from the two supported registries. Each registry has its own subpackage:
//
//   - [curseforge]: CurseForge Core API v1 (requires an API key)
//   - [modrinth]: Modrinth Labrinth API v2 (requires a User-Agent)
//
// The clients return raw response structs. Mapping them onto the shared
// project model, and recording failures on a run's ledger, is the job of
// the registry adapters in pkg/core/registry.
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by both registry
// clients:
//   - default headers (credentials) on every request
//   - response caching via [cache.Cache], keyed per registry namespace
//   - retry with exponential backoff for network errors and 5xx responses
//   - error descriptions pulled from registry error bodies
//   - [Client.Stream] for artifact downloads
//
// # Errors
//
// A 404 becomes [ErrNotFound]; any other failure wraps [ErrNetwork].
//
// [curseforge]: github.com/matzehuels/modfetch/pkg/integrations/curseforge
// [modrinth]: github.com/matzehuels/modfetch/pkg/integrations/modrinth
// [cache.Cache]: github.com/matzehuels/modfetch/pkg/cache.Cache
package integrations
