package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/integrations"
)

const modList = `<html><body>
<ul>
  <li><a href="https://www.curseforge.com/minecraft/mc-mods/jei">JEI</a></li>
  <li><a href="https://www.curseforge.com/minecraft/mc-mods/jei/files">JEI files</a></li>
  <li><a href="https://www.curseforge.com/minecraft/texture-packs/faithful-32x">Faithful</a></li>
  <li><a href="https://modrinth.com/mod/sodium">Sodium</a></li>
  <li><a href="https://example.com">elsewhere</a></li>
  <li><a>no href</a></li>
</ul>
</body></html>`

const collectionPage = `<html><body>
<nav><a href="/mod/featured-ad">ad</a></nav>
<div class="project-list">
  <article class="project-card"><a href="/mod/sodium"><h2>Sodium</h2></a></article>
  <article class="project-card"><a href="/mod/sodium?tab=versions">Sodium again</a></article>
  <article class="project-card"><a href="/shader/complementary-reimagined">Complementary</a></article>
  <article class="project-card"><a href="/mod/x">too short</a></article>
  <article class="project-card"><a href="/user/jellysquid">author</a></article>
</div>
</body></html>`

func TestCurseForgeLinks(t *testing.T) {
	refs, err := CurseForgeLinks([]byte(modList))
	require.NoError(t, err)
	assert.Equal(t, []project.Ref{
		{Source: project.CurseForge, Slug: "jei", Category: project.Mod},
		{Source: project.CurseForge, Slug: "faithful-32x", Category: project.ResourcePack},
	}, refs)
}

func TestCollectionRefs(t *testing.T) {
	refs, err := CollectionRefs([]byte(collectionPage))
	require.NoError(t, err)
	assert.Equal(t, []project.Ref{
		{Source: project.Modrinth, Slug: "sodium", Category: project.Mod},
		{Source: project.Modrinth, Slug: "complementary-reimagined", Category: project.Shader},
	}, refs)
}

func TestReaderLocal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/seeds/mods.html", []byte(modList), 0o644))

	r := NewReader(fs, nil)
	data, err := r.Read(context.Background(), "/seeds/mods.html")
	require.NoError(t, err)
	assert.Equal(t, modList, string(data))

	_, err = r.Read(context.Background(), "/seeds/missing.html")
	assert.True(t, errors.Is(err, errors.ErrCodeSeedUnreadable))
}

func TestReaderURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collection/abc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(collectionPage))
	}))
	defer srv.Close()

	client := integrations.NewClient(nil, "pages", 0, nil)
	client.SetRetry(1, 0)
	r := NewReader(nil, client)

	data, err := r.Read(context.Background(), srv.URL+"/collection/abc")
	require.NoError(t, err)
	assert.Contains(t, string(data), "project-card")

	_, err = r.Read(context.Background(), srv.URL+"/collection/gone")
	assert.True(t, errors.Is(err, errors.ErrCodeSeedUnreadable))
}

func TestReaderURLWithoutClient(t *testing.T) {
	_, err := NewReader(afero.NewMemMapFs(), nil).Read(context.Background(), "https://modrinth.com/collection/abc")
	assert.True(t, errors.Is(err, errors.ErrCodeSeedUnreadable))
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
version = "1.20.1"
loader = "fabric"

[[project]]
url = "https://www.curseforge.com/minecraft/mc-mods/jei"

[[project]]
source = "modrinth"
slug = "sodium"

[[project]]
name = "Iris Shaders"
`))
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", m.Version)
	assert.Equal(t, "fabric", m.Loader)
	require.Len(t, m.Projects, 3)

	ref, ok := m.Projects[0].Ref()
	require.True(t, ok)
	assert.Equal(t, project.Ref{Source: project.CurseForge, Slug: "jei", Category: project.Mod}, ref)

	ref, ok = m.Projects[1].Ref()
	require.True(t, ok)
	assert.Equal(t, project.Ref{Source: project.Modrinth, Slug: "sodium", Category: project.Mod}, ref)

	_, ok = m.Projects[2].Ref()
	assert.False(t, ok)
	assert.Equal(t, "Iris Shaders", m.Projects[2].Identifier())
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `[[project]`},
		{"empty", `version = "1.20.1"`},
		{"unknown key", "[[project]]\nname = \"a\"\nfoo = 1"},
		{"two identifiers", "[[project]]\nname = \"a\"\nslug = \"b\"\nsource = \"modrinth\""},
		{"slug without source", "[[project]]\nslug = \"b\""},
		{"bad url", "[[project]]\nurl = \"https://example.com/x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeSeedUnreadable))
		})
	}
}

func TestParseManifestNamesBadEntry(t *testing.T) {
	_, err := ParseManifest([]byte("[[project]]\nname = \"ok\"\n\n[[project]]\nslug = \"jei\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `project 2 (jei)`)
	assert.Contains(t, err.Error(), "needs source curseforge or modrinth")
}

func TestExampleManifests(t *testing.T) {
	paths, err := filepath.Glob("../../examples/manifest/*.toml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			m, err := ParseManifest(data)
			require.NoError(t, err)
			assert.NotEmpty(t, m.Projects)
		})
	}
}
