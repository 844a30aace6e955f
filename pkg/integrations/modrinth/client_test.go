package modrinth

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
	c := NewClient(nil, time.Hour, "")
	c.SetBaseURL(server.URL)
	c.SetHTTPClient(server.Client())
	c.SetRetry(1, time.Millisecond)
	return c
}

func TestClient_GetProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/project/sodium":
			json.NewEncoder(w).Encode(Project{ID: "AANobbMI", Slug: "sodium", Title: "Sodium", ProjectType: "mod"})
		case "/project/empty":
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not_found","description":"the requested route does not exist"}`))
		}
	}))
	defer server.Close()

	c := testClient(t, server)

	p, err := c.GetProject(context.Background(), "sodium")
	require.NoError(t, err)
	assert.Equal(t, "Sodium", p.Title)

	_, err = c.GetProject(context.Background(), "empty")
	assert.True(t, errors.Is(err, integrations.ErrNotFound))

	_, err = c.GetProject(context.Background(), "missing")
	assert.True(t, errors.Is(err, integrations.ErrNotFound))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestClient_GetVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project/sodium/version", r.URL.Path)
		assert.Equal(t, `["1.20.1"]`, r.URL.Query().Get("game_versions"))
		assert.Equal(t, `["fabric"]`, r.URL.Query().Get("loaders"))
		json.NewEncoder(w).Encode([]Version{{
			ID:           "v1",
			GameVersions: []string{"1.20.1"},
			Loaders:      []string{"fabric"},
			Files: []File{
				{Filename: "sodium-sources.jar", URL: "https://cdn/s.jar"},
				{Filename: "sodium.jar", URL: "https://cdn/p.jar", Size: 99, Primary: true},
			},
		}})
	}))
	defer server.Close()

	versions, err := testClient(t, server).GetVersions(context.Background(), "sodium", VersionQuery{
		GameVersions: []string{"1.20.1"},
		Loaders:      []string{"fabric"},
	})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "sodium.jar", versions[0].PrimaryFile().Filename)
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Sodium", r.URL.Query().Get("query"))
		assert.Equal(t, `[["project_type:mod"]]`, r.URL.Query().Get("facets"))
		json.NewEncoder(w).Encode(map[string]any{
			"hits": []SearchHit{{ProjectID: "AANobbMI", Slug: "sodium", Title: "Sodium", ProjectType: "mod"}},
		})
	}))
	defer server.Close()

	hits, err := testClient(t, server).Search(context.Background(), "Sodium", []string{"mod"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "sodium", hits[0].Slug)
}

func TestVersion_PrimaryFile(t *testing.T) {
	v := Version{Files: []File{{Filename: "a.jar"}, {Filename: "b.jar"}}}
	assert.Equal(t, "a.jar", v.PrimaryFile().Filename)

	assert.Nil(t, (&Version{}).PrimaryFile())
}
