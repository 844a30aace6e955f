package project

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchMode selects how declared game versions are compared to the target.
type MatchMode string

const (
	// MatchPrefix accepts equal strings or either being a prefix of the other.
	MatchPrefix MatchMode = "prefix"
	// MatchSegment compares "."/"-" separated segments, so a shorter token
	// only matches whole leading segments of a longer one.
	MatchSegment MatchMode = "segment"
)

// ParseMatchMode parses a mode name; empty means [MatchPrefix].
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchPrefix:
		return MatchPrefix, nil
	case MatchSegment:
		return MatchSegment, nil
	}
	return "", fmt.Errorf("unknown version match mode %q (want prefix or segment)", s)
}

// VersionMatches reports whether a declared game version satisfies want.
func VersionMatches(mode MatchMode, want, declared string) bool {
	if want == "" || declared == "" {
		return false
	}
	if want == declared {
		return true
	}
	if mode == MatchSegment {
		return segmentPrefix(splitVersion(want), splitVersion(declared))
	}
	return strings.HasPrefix(declared, want) || strings.HasPrefix(want, declared)
}

// AnyVersionMatches reports whether any declared version satisfies want.
func AnyVersionMatches(mode MatchMode, want string, declared []string) bool {
	for _, d := range declared {
		if VersionMatches(mode, want, d) {
			return true
		}
	}
	return false
}

func splitVersion(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' })
}

func segmentPrefix(a, b []string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LoaderMatches reports whether an artifact declaring the given loaders can
// run under want. A non-filtering want, an artifact without loaders, and an
// artifact declaring the "any" wildcard all match.
func LoaderMatches(want Loader, declared []string) bool {
	if !want.Filters() || len(declared) == 0 {
		return true
	}
	for _, d := range declared {
		if strings.EqualFold(d, string(AnyLoader)) || strings.EqualFold(d, string(want)) {
			return true
		}
	}
	return false
}

// Compatible applies both rules to an artifact. The loader rule is skipped
// for categories that are not loader-sensitive.
func Compatible(mode MatchMode, t Target, c Category, a Artifact) bool {
	if !AnyVersionMatches(mode, t.Version, a.GameVersions) {
		return false
	}
	return !c.LoaderSensitive() || LoaderMatches(t.Loader, a.Loaders)
}

var (
	curseForgeURL = regexp.MustCompile(`(?i)curseforge\.com/minecraft/(mc-mods|texture-packs|resource-packs)/([^/?#\s]+)`)
	modrinthURL   = regexp.MustCompile(`(?i)modrinth\.com/(mod|plugin|resourcepack|shader|datapack|modpack)/([^/?#\s]+)`)
	collectionURL = regexp.MustCompile(`(?i)modrinth\.com/collection/([^/?#\s]+)`)
)

// Ref is a project reference parsed out of a registry URL.
type Ref struct {
	Source   Source
	Slug     string
	Category Category
}

// ParseURL recognises CurseForge and Modrinth project URLs.
//
//	ParseURL("https://www.curseforge.com/minecraft/mc-mods/jei")
//	// Ref{Source: CurseForge, Slug: "jei", Category: Mod}, true
func ParseURL(raw string) (Ref, bool) {
	if m := curseForgeURL.FindStringSubmatch(raw); m != nil {
		c := ResourcePack
		if strings.EqualFold(m[1], "mc-mods") {
			c = Mod
		}
		return Ref{Source: CurseForge, Slug: m[2], Category: c}, true
	}
	if m := modrinthURL.FindStringSubmatch(raw); m != nil {
		return Ref{Source: Modrinth, Slug: m[2], Category: Category(strings.ToLower(m[1]))}, true
	}
	return Ref{}, false
}

// IsCollectionURL reports whether raw points at a Modrinth collection.
func IsCollectionURL(raw string) bool { return collectionURL.MatchString(raw) }

// CurseForgePage returns the canonical CurseForge page for a slug.
func CurseForgePage(c Category, slug string) string {
	segment := "mc-mods"
	if c != Mod {
		segment = "texture-packs"
	}
	return "https://www.curseforge.com/minecraft/" + segment + "/" + slug
}

// ModrinthPage returns the canonical Modrinth page for a slug.
func ModrinthPage(c Category, slug string) string {
	if c == "" {
		c = Mod
	}
	return "https://modrinth.com/" + string(c) + "/" + slug
}
