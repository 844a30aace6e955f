package project

import (
	"fmt"
	"strings"
	"time"
)

// Source names a registry.
type Source string

const (
	CurseForge Source = "curseforge"
	Modrinth   Source = "modrinth"
)

// Display returns the registry's brand name.
func (s Source) Display() string {
	switch s {
	case CurseForge:
		return "CurseForge"
	case Modrinth:
		return "Modrinth"
	}
	return string(s)
}

// Category is the kind of content a project ships. Values follow Modrinth's
// project_type strings.
type Category string

const (
	Mod          Category = "mod"
	ResourcePack Category = "resourcepack"
	Shader       Category = "shader"
	Datapack     Category = "datapack"
	Plugin       Category = "plugin"
	Modpack      Category = "modpack"
)

// LoaderSensitive reports whether artifacts of this category are tied to a
// mod loader. Only mods are.
func (c Category) LoaderSensitive() bool { return c == Mod }

// CurseForgeClass returns the CurseForge class id used when searching for
// this category, or 0 when CurseForge has no counterpart. Shaders are
// searched among resource packs.
func (c Category) CurseForgeClass() int {
	switch c {
	case Mod:
		return 6
	case ResourcePack, Shader:
		return 12
	}
	return 0
}

// CategoryFromCurseForgeClass maps a CurseForge class id to a category.
func CategoryFromCurseForgeClass(id int) Category {
	switch id {
	case 6:
		return Mod
	case 12:
		return ResourcePack
	case 6552:
		return Shader
	case 6945:
		return Datapack
	case 4471:
		return Modpack
	}
	return ""
}

// Display returns a human label for the category.
func (c Category) Display() string {
	switch c {
	case Mod:
		return "Mod"
	case ResourcePack:
		return "Resource Pack"
	case Shader:
		return "Shader"
	case Datapack:
		return "Datapack"
	case Plugin:
		return "Plugin"
	case Modpack:
		return "Modpack"
	}
	return "Project"
}

// Loader is the mod-loading runtime an artifact targets.
type Loader string

const (
	Forge     Loader = "forge"
	Fabric    Loader = "fabric"
	Quilt     Loader = "quilt"
	NeoForge  Loader = "neoforge"
	AnyLoader Loader = "any"
	NoLoader  Loader = "none"
)

// Loaders lists every accepted loader token.
var Loaders = []Loader{Forge, Fabric, Quilt, NeoForge, AnyLoader, NoLoader}

// ParseLoader parses a loader token case-insensitively.
func ParseLoader(s string) (Loader, error) {
	l := Loader(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Loaders {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown loader %q (want one of forge, fabric, quilt, neoforge, any, none)", s)
}

// Filters reports whether the loader restricts artifacts at all. "any" and
// "none" do not.
func (l Loader) Filters() bool { return l != AnyLoader && l != NoLoader && l != "" }

// CurseForgeType returns the CurseForge modLoaderType id, 0 for no filter.
func (l Loader) CurseForgeType() int {
	switch l {
	case Forge:
		return 1
	case Fabric:
		return 4
	case Quilt:
		return 5
	case NeoForge:
		return 6
	}
	return 0
}

// BestVersion is the version token asking modfetch to pick the most widely
// supported game version itself.
const BestVersion = "best"

// Target is what a run resolves against. It is fixed once selection is done
// and read-only afterwards.
type Target struct {
	Version string
	Loader  Loader
}

// IsBest reports whether the version still has to be selected.
func (t Target) IsBest() bool { return strings.EqualFold(t.Version, BestVersion) }

func (t Target) String() string {
	return fmt.Sprintf("MC: %s, L: %s", t.Version, t.Loader)
}

// EdgeKind is the relation a dependency edge expresses.
type EdgeKind string

const (
	Required     EdgeKind = "required"
	Optional     EdgeKind = "optional"
	Embedded     EdgeKind = "embedded"
	Incompatible EdgeKind = "incompatible"
	Tool         EdgeKind = "tool"
	Other        EdgeKind = "other"
)

// Edge is a declared dependency from one project to another on the same
// registry.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Followed reports whether the resolver walks this edge.
func (e Edge) Followed() bool { return e.Kind == Required || e.Kind == Embedded }

// Project is one registry record. It is immutable once resolved.
type Project struct {
	Source       Source
	ID           string
	Slug         string
	Name         string
	Category     Category
	URL          string
	Dependencies []Edge
	Links        []string // outbound URLs that may point at the other registry
}

// Key is the dedup identity of the project within a run.
func (p *Project) Key() string { return Key(p.Source, p.ID) }

// Label returns the best human-readable name available.
func (p *Project) Label() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Slug != "":
		return p.Slug
	}
	return p.ID
}

// Origin returns the project page, falling back to its key.
func (p *Project) Origin() string {
	if p.URL != "" {
		return p.URL
	}
	return p.Key()
}

// Key builds a project key from its parts.
func Key(s Source, id string) string { return string(s) + ":" + id }

// SizeUnknown marks an artifact whose byte length the registry did not
// declare.
const SizeUnknown int64 = -1

// Artifact is one downloadable file of a project.
type Artifact struct {
	FileName     string
	URL          string
	Size         int64
	GameVersions []string
	Loaders      []string
	Published    time.Time
}

// Resolved pairs a project with the artifact chosen for it.
type Resolved struct {
	Project  *Project
	Artifact Artifact
}
