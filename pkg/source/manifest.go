package source

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
)

// Manifest lists the projects a run should fetch.
//
//	version = "1.20.1"
//	loader = "fabric"
//
//	[[project]]
//	url = "https://www.curseforge.com/minecraft/mc-mods/jei"
//
//	[[project]]
//	source = "modrinth"
//	slug = "sodium"
//
//	[[project]]
//	name = "Iris Shaders"
type Manifest struct {
	// Version and Loader are optional; flags win over them.
	Version  string  `toml:"version"`
	Loader   string  `toml:"loader"`
	Projects []Entry `toml:"project"`
}

// Entry is one manifest project. Exactly one of URL, Slug or Name is
// expected; Source is required with Slug.
type Entry struct {
	URL      string `toml:"url"`
	Source   string `toml:"source"`
	Slug     string `toml:"slug"`
	Name     string `toml:"name"`
	Category string `toml:"category"`
}

// Identifier returns what to look the entry up by.
func (e Entry) Identifier() string {
	switch {
	case e.URL != "":
		return e.URL
	case e.Slug != "":
		return e.Slug
	}
	return e.Name
}

// Ref returns the project reference of a URL or slug entry.
func (e Entry) Ref() (project.Ref, bool) {
	if e.URL != "" {
		return project.ParseURL(e.URL)
	}
	if e.Slug == "" {
		return project.Ref{}, false
	}
	c := project.Category(strings.ToLower(e.Category))
	if c == "" {
		c = project.Mod
	}
	return project.Ref{Source: project.Source(strings.ToLower(e.Source)), Slug: e.Slug, Category: c}, true
}

// ParseManifest decodes and checks a TOML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeSeedUnreadable, "unknown manifest key %q", undecoded[0].String())
	}
	if len(m.Projects) == 0 {
		return nil, errNoLinks("projects", "manifest")
	}
	for i, e := range m.Projects {
		if err := e.validate(); err != nil {
			if id := e.Identifier(); id != "" {
				return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "project %d (%s)", i+1, id)
			}
			return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "project %d", i+1)
		}
	}
	return &m, nil
}

func (e Entry) validate() error {
	set := 0
	for _, v := range []string{e.URL, e.Slug, e.Name} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("set exactly one of url, slug or name")
	}
	if e.URL != "" {
		if _, ok := project.ParseURL(e.URL); !ok {
			return fmt.Errorf("unrecognised project URL %q", e.URL)
		}
	}
	if e.Slug != "" {
		switch project.Source(strings.ToLower(e.Source)) {
		case project.CurseForge, project.Modrinth:
		default:
			return fmt.Errorf("slug %q needs source curseforge or modrinth", e.Slug)
		}
		if err := errors.ValidateSlug(e.Slug); err != nil {
			return err
		}
	}
	return nil
}
