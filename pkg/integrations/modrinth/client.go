package modrinth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/modfetch/pkg/cache"
	"github.com/matzehuels/modfetch/pkg/integrations"
)

// DefaultBaseURL is the Labrinth API root.
const DefaultBaseURL = "https://api.modrinth.com/v2"

// DefaultUserAgent identifies modfetch to Modrinth, which rejects requests
// without a descriptive User-Agent.
const DefaultUserAgent = "modfetch/1.0 (https://github.com/matzehuels/modfetch)"

// Project is a Modrinth project record.
type Project struct {
	ID                string            `json:"id"`
	Slug              string            `json:"slug"`
	Title             string            `json:"title"`
	ProjectType       string            `json:"project_type"`
	SourceURL         string            `json:"source_url"`
	IssuesURL         string            `json:"issues_url"`
	WikiURL           string            `json:"wiki_url"`
	DiscordURL        string            `json:"discord_url"`
	DonationURLs      []DonationURL     `json:"donation_urls"`
	ExternalResources map[string]string `json:"external_resources,omitempty"`
	GameVersions      []string          `json:"game_versions"`
	Loaders           []string          `json:"loaders"`
}

// DonationURL is one entry of a project's donation links.
type DonationURL struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Version is one published version of a project.
type Version struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"project_id"`
	Name          string       `json:"name"`
	VersionNumber string       `json:"version_number"`
	GameVersions  []string     `json:"game_versions"`
	Loaders       []string     `json:"loaders"`
	DatePublished string       `json:"date_published"`
	Dependencies  []Dependency `json:"dependencies"`
	Files         []File       `json:"files"`
}

// Dependency types as published by Modrinth.
const (
	DependencyRequired     = "required"
	DependencyOptional     = "optional"
	DependencyEmbedded     = "embedded"
	DependencyIncompatible = "incompatible"
)

// Dependency is a relation declared by a version. Either ProjectID or
// VersionID may be empty.
type Dependency struct {
	ProjectID      string `json:"project_id"`
	VersionID      string `json:"version_id"`
	DependencyType string `json:"dependency_type"`
}

// File is one downloadable file of a version.
type File struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Primary  bool   `json:"primary"`
}

// PrimaryFile returns the file flagged primary, else the first file, else nil.
func (v *Version) PrimaryFile() *File {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) > 0 {
		return &v.Files[0]
	}
	return nil
}

// SearchHit is one result of /search.
type SearchHit struct {
	ProjectID   string `json:"project_id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	ProjectType string `json:"project_type"`
}

// VersionQuery narrows a /project/{id}/version call. Empty slices are omitted.
type VersionQuery struct {
	GameVersions []string
	Loaders      []string
}

// Client provides access to the Modrinth API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a Modrinth client. An empty userAgent falls back to
// [DefaultUserAgent].
func NewClient(backend cache.Cache, cacheTTL time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := map[string]string{
		"User-Agent": userAgent,
	}
	return &Client{
		Client:  integrations.NewClient(backend, "modrinth", cacheTTL, headers),
		baseURL: DefaultBaseURL,
	}
}

// SetBaseURL points the client at a different API root.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// GetProject fetches a project by id or slug.
func (c *Client) GetProject(ctx context.Context, idOrSlug string) (*Project, error) {
	u := fmt.Sprintf("%s/project/%s", c.baseURL, url.PathEscape(idOrSlug))

	var p Project
	if err := c.Cached(ctx, u, &p, func() error {
		return c.Get(ctx, u, &p)
	}); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, fmt.Errorf("%w: project %s", err, idOrSlug)
		}
		return nil, err
	}
	if p.ID == "" && p.Slug == "" {
		return nil, fmt.Errorf("%w: project %s: empty response", integrations.ErrNotFound, idOrSlug)
	}
	return &p, nil
}

// GetVersions lists a project's versions, newest first, filtered
// server-side by q.
func (c *Client) GetVersions(ctx context.Context, idOrSlug string, q VersionQuery) ([]Version, error) {
	params := url.Values{}
	if len(q.GameVersions) > 0 {
		params.Set("game_versions", jsonList(q.GameVersions))
	}
	if len(q.Loaders) > 0 {
		params.Set("loaders", jsonList(q.Loaders))
	}
	u := integrations.WithQuery(fmt.Sprintf("%s/project/%s/version", c.baseURL, url.PathEscape(idOrSlug)), params)

	var versions []Version
	if err := c.Cached(ctx, u, &versions, func() error {
		return c.Get(ctx, u, &versions)
	}); err != nil {
		return nil, err
	}
	return versions, nil
}

// Search runs a relevance-ordered /search restricted to the given project
// types (any of them matches).
func (c *Client) Search(ctx context.Context, query string, projectTypes []string, limit int) ([]SearchHit, error) {
	params := url.Values{
		"query": {query},
		"index": {"relevance"},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if len(projectTypes) > 0 {
		var group []string
		for _, t := range projectTypes {
			group = append(group, "project_type:"+t)
		}
		facets, _ := json.Marshal([][]string{group})
		params.Set("facets", string(facets))
	}
	u := integrations.WithQuery(c.baseURL+"/search", params)

	var resp struct {
		Hits []SearchHit `json:"hits"`
	}
	if err := c.Cached(ctx, u, &resp, func() error {
		return c.Get(ctx, u, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

func jsonList(values []string) string {
	data, _ := json.Marshal(values)
	return string(data)
}
