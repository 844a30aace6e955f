// Package project defines the data model shared by every modfetch component:
// projects and their artifacts on the two registries, dependency edges, the
// run's resolution target, and the rules that decide whether an artifact
// fits that target.
//
// # Identity
//
// A [Project] is identified by its registry and id ([Project.Key]). Ids are
// numeric strings on CurseForge and base62 ids or slugs on Modrinth. Two
// records with the same key are the same project for deduplication.
//
// # Compatibility rules
//
// [VersionMatches] decides whether a declared game version satisfies the
// requested one. Two modes exist:
//
//   - [MatchPrefix] (default): equal, or either string is a prefix of the
//     other. "1.20" matches "1.20.1" and "1.20.1" matches "1.20.1-pre2",
//     but "1.2" also matches "1.20".
//   - [MatchSegment]: compares dotted segments, so "1.2" no longer matches
//     "1.20" while "1.20" still matches "1.20.1".
//
// [LoaderMatches] applies to loader-sensitive categories only (mods).
package project
