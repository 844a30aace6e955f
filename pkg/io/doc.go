// Package io provides JSON export and import of run reports.
//
// # JSON Format
//
// A report records what a run resolved, what happened to each artifact
// and what was missed:
//
//	{
//	  "run_id": "5f0c...",
//	  "workflow": "deps",
//	  "seed": "https://www.curseforge.com/minecraft/mc-mods/create",
//	  "target": {"version": "1.20.1", "loader": "forge"},
//	  "resolved": [
//	    {"key": "curseforge:328085", "name": "Create", "file": "create-1.20.1-0.5.1.jar",
//	     "url": "https://edge.forgecdn.net/...", "size": 14102314}
//	  ],
//	  "outcomes": [{"project": "Create", "file_name": "create-1.20.1-0.5.1.jar", "status": "fetched"}],
//	  "missed": [{"name": "Flywheel", "origin": "curseforge:486392", "reason": "...", "kind": "NO_COMPATIBLE_ARTIFACT"}],
//	  "duration_ms": 5120
//	}
//
// "selection" is present when the game version was picked automatically.
// "missed" is always an array, empty when nothing was missed.
//
// # Export
//
// Use [ExportJSON] to write a report to a file, or [WriteJSON] to write to
// any io.Writer. [ReadJSON] and [ImportJSON] read a report back, for
// comparing runs or re-printing a miss report.
package io
