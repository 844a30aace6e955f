package curseforge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/modfetch/pkg/cache"
	"github.com/matzehuels/modfetch/pkg/integrations"
)

// DefaultBaseURL is the CurseForge Core API root.
const DefaultBaseURL = "https://api.curseforge.com/v1"

// GameMinecraft is the CurseForge game id for Minecraft.
const GameMinecraft = 432

// Class ids for the project categories modfetch understands.
const (
	ClassMod          = 6
	ClassResourcePack = 12
	ClassModpack      = 4471
	ClassShader       = 6552
	ClassDatapack     = 6945
)

// Mod loader type ids accepted by the files endpoint.
const (
	LoaderAny      = 0
	LoaderForge    = 1
	LoaderFabric   = 4
	LoaderQuilt    = 5
	LoaderNeoForge = 6
)

// Dependency relation types as published by CurseForge.
const (
	RelationEmbeddedLibrary    = 1
	RelationOptionalDependency = 2
	RelationRequiredDependency = 3
	RelationTool               = 4
	RelationIncompatible       = 5
	RelationInclude            = 6
)

// Mod is a CurseForge project record.
type Mod struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	ClassID      int          `json:"classId"`
	Links        Links        `json:"links"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	LatestFiles  []File       `json:"latestFiles,omitempty"`
}

// Links holds the project's outbound URLs.
type Links struct {
	WebsiteURL string `json:"websiteUrl"`
	WikiURL    string `json:"wikiUrl"`
	IssuesURL  string `json:"issuesUrl"`
	SourceURL  string `json:"sourceUrl"`
}

// Dependency is one relation declared by a file (or, on some records, by
// the project itself).
type Dependency struct {
	ModID        int `json:"modId"`
	RelationType int `json:"relationType"`
}

// File is one downloadable file of a project. DownloadURL is empty when the
// author has disabled third-party distribution.
type File struct {
	ID           int          `json:"id"`
	DisplayName  string       `json:"displayName"`
	FileName     string       `json:"fileName"`
	FileDate     string       `json:"fileDate"`
	FileLength   int64        `json:"fileLength"`
	DownloadURL  string       `json:"downloadUrl"`
	GameVersions []string     `json:"gameVersions"`
	Dependencies []Dependency `json:"dependencies"`
}

// SearchParams narrows a /mods/search call. Zero values are omitted.
type SearchParams struct {
	ClassID      int
	Slug         string
	SearchFilter string
	SortField    int
	PageSize     int
}

// FilesQuery narrows a /mods/{id}/files call. Zero values are omitted.
type FilesQuery struct {
	GameVersion   string
	ModLoaderType int
	PageSize      int
}

// Client provides access to the CurseForge Core API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a CurseForge client. The API key is sent as x-api-key
// on every request, downloads included.
func NewClient(backend cache.Cache, cacheTTL time.Duration, apiKey string) *Client {
	headers := map[string]string{
		"x-api-key": apiKey,
		"Accept":    "application/json",
	}
	return &Client{
		Client:  integrations.NewClient(backend, "curseforge", cacheTTL, headers),
		baseURL: DefaultBaseURL,
	}
}

// SetBaseURL points the client at a different API root.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Search runs /mods/search for Minecraft with the given filters.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Mod, error) {
	params := url.Values{
		"gameId":       {strconv.Itoa(GameMinecraft)},
		"slug":         {p.Slug},
		"searchFilter": {p.SearchFilter},
	}
	if p.ClassID > 0 {
		params.Set("classId", strconv.Itoa(p.ClassID))
	}
	if p.SortField > 0 {
		params.Set("sortField", strconv.Itoa(p.SortField))
	}
	if p.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	u := integrations.WithQuery(c.baseURL+"/mods/search", params)

	var resp struct {
		Data []Mod `json:"data"`
	}
	if err := c.Cached(ctx, u, &resp, func() error {
		return c.Get(ctx, u, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetMod fetches one project by numeric id.
//
// Returns [integrations.ErrNotFound] if the project doesn't exist or the
// registry answered without data.
func (c *Client) GetMod(ctx context.Context, id int) (*Mod, error) {
	u := fmt.Sprintf("%s/mods/%d", c.baseURL, id)

	var resp struct {
		Data *Mod `json:"data"`
	}
	if err := c.Cached(ctx, u, &resp, func() error {
		return c.Get(ctx, u, &resp)
	}); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: mod %d", err, id)
		}
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: mod %d: empty response", integrations.ErrNotFound, id)
	}
	return resp.Data, nil
}

// GetFiles lists a project's files, filtered server-side by q.
func (c *Client) GetFiles(ctx context.Context, modID int, q FilesQuery) ([]File, error) {
	params := url.Values{"gameVersion": {q.GameVersion}}
	if q.ModLoaderType > 0 {
		params.Set("modLoaderType", strconv.Itoa(q.ModLoaderType))
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	u := integrations.WithQuery(fmt.Sprintf("%s/mods/%d/files", c.baseURL, modID), params)

	var resp struct {
		Data []File `json:"data"`
	}
	if err := c.Cached(ctx, u, &resp, func() error {
		return c.Get(ctx, u, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
