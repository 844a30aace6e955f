// Package curseforge provides a client for the CurseForge Core API v1.
//
// Every request carries the static API key in the x-api-key header. The
// client covers the three endpoints modfetch needs:
//
//   - /mods/search: look a project up by slug or by display name
//   - /mods/{id}: fetch a project record with its dependency relations
//   - /mods/{id}/files: list files, optionally filtered by game version
//     and mod loader
//
// Responses are wrapped in {"data": ...}; the client unwraps them and maps
// a missing data field on /mods/{id} to [integrations.ErrNotFound].
//
// CurseForge reports loaders inside gameVersions ("Forge", "Fabric", ...);
// splitting them from real game versions is left to the caller.
//
// [integrations.ErrNotFound]: github.com/matzehuels/modfetch/pkg/integrations.ErrNotFound
package curseforge
