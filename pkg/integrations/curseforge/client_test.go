package curseforge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/modfetch/pkg/integrations"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c := NewClient(nil, time.Hour, "test-key")
	c.SetBaseURL(server.URL)
	c.SetHTTPClient(server.Client())
	c.SetRetry(1, time.Millisecond)
	return c
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "432", r.URL.Query().Get("gameId"))
		assert.Equal(t, "6", r.URL.Query().Get("classId"))
		assert.Equal(t, "jei", r.URL.Query().Get("slug"))
		assert.False(t, r.URL.Query().Has("searchFilter"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []Mod{{ID: 238222, Name: "Just Enough Items (JEI)", Slug: "jei", ClassID: 6}},
		})
	}))
	defer server.Close()

	mods, err := testClient(t, server).Search(context.Background(), SearchParams{ClassID: ClassMod, Slug: "jei"})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, 238222, mods[0].ID)
}

func TestClient_GetMod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mods/1":
			w.Write([]byte(`{"data":{"id":1,"name":"A","slug":"a","classId":6,
				"links":{"websiteUrl":"https://www.curseforge.com/minecraft/mc-mods/a"},
				"latestFiles":[{"id":10,"dependencies":[{"modId":2,"relationType":3}]}]}}`))
		case "/mods/2":
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(t, server)

	mod, err := c.GetMod(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", mod.Slug)
	assert.Equal(t, "https://www.curseforge.com/minecraft/mc-mods/a", mod.Links.WebsiteURL)
	require.Len(t, mod.LatestFiles, 1)
	assert.Equal(t, []Dependency{{ModID: 2, RelationType: RelationRequiredDependency}}, mod.LatestFiles[0].Dependencies)

	_, err = c.GetMod(context.Background(), 2)
	assert.True(t, errors.Is(err, integrations.ErrNotFound), "empty data is not found: %v", err)

	_, err = c.GetMod(context.Background(), 3)
	assert.True(t, errors.Is(err, integrations.ErrNotFound), "404 is not found: %v", err)
}

func TestClient_GetFiles(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/7/files", r.URL.Path)
		queries = append(queries, r.URL.RawQuery)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []File{{ID: 1, FileName: "a.jar", FileLength: 1024, GameVersions: []string{"1.20.1", "Forge"}}},
		})
	}))
	defer server.Close()

	c := testClient(t, server)

	files, err := c.GetFiles(context.Background(), 7, FilesQuery{GameVersion: "1.20.1", ModLoaderType: LoaderForge, PageSize: 50})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jar", files[0].FileName)

	_, err = c.GetFiles(context.Background(), 7, FilesQuery{PageSize: 200})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"gameVersion=1.20.1&modLoaderType=1&pageSize=50",
		"pageSize=200",
	}, queries)
}
