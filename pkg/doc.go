// Package pkg provides the libraries behind modfetch, a Minecraft mod
// downloader for CurseForge and Modrinth.
//
// # Overview
//
// modfetch turns a seed (a saved page, a project URL, a name, a Modrinth
// collection, a TOML manifest) into files on disk that match one game
// version and mod loader. The pkg directory is organized into four areas:
//
//  1. [core] - Domain logic (projects, matching, resolution, acquisition)
//  2. [integrations] - HTTP clients for the CurseForge and Modrinth APIs
//  3. [pipeline] - Orchestration of the five workflows
//  4. Support packages: [cache], [config], [errors], [httputil], [io],
//     [observability], [source]
//
// # Architecture
//
// The data flow through one run:
//
//	Seed (page, URL, name, collection, manifest)
//	         ↓
//	    [source] package (read pages and manifests, extract links)
//	         ↓
//	    [core/resolve] package (follow required dependencies)
//	         ↓
//	    [core/bestversion] package (pick "best" game version)
//	         ↓
//	    [core/match] package (one compatible artifact per project)
//	         ↓
//	    [core/acquire] package (bounded parallel downloads)
//	         ↓
//	    Files in the destination + miss report
//
// Registry access goes through [core/registry], which adapts the API
// clients to one interface and records every failure on the run's
// [core/ledger] instead of returning it.
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/modfetch/pkg/integrations"
//	    "github.com/matzehuels/modfetch/pkg/integrations/curseforge"
//	    "github.com/matzehuels/modfetch/pkg/integrations/modrinth"
//	    "github.com/matzehuels/modfetch/pkg/pipeline"
//	)
//
//	cf := curseforge.NewClient(nil, 0, apiKey)
//	mr := modrinth.NewClient(nil, 0, modrinth.DefaultUserAgent)
//	runner := pipeline.NewRunner(cf, mr, integrations.NewClient(nil, "pages", 0, nil), logger)
//
//	res, err := runner.Lookup(ctx, "Sodium", pipeline.Options{
//	    Version: "1.21",
//	    Loader:  project.Fabric,
//	    Prefer:  project.Modrinth,
//	})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/project] - Projects, artifacts, targets and the version and loader
// compatibility rules.
//
// [core/registry] - The Registry interface with CurseForge and Modrinth
// adapters.
//
// [core/equiv] - Finds the same project on the other registry.
//
// [core/choice] - Routes "which registry?" decisions to a chooser with a
// timeout.
//
// ## External Integrations
//
// [integrations] - Shared HTTP client with caching and retries, plus one
// subpackage per registry.
//
// ## Orchestration
//
// [pipeline] - Runs the page, deps, collection, lookup and manifest
// workflows and returns a Result carrying the miss report.
package pkg
