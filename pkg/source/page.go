package source

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/errors"
)

var (
	collectionHref = regexp.MustCompile(`^/(mod|plugin|resourcepack|shader|datapack|modpack)/([^/?#]+)`)
	// Collection pages link to plenty of projects outside the collection
	// (ads, "featured"); only anchors inside a result card count.
	cardClass = regexp.MustCompile(`(?i)(project-card|item|result|hit|flex-item)`)
)

// CurseForgeLinks returns the CurseForge project references linked from an
// HTML page, in page order, without duplicates.
func CurseForgeLinks(page []byte) ([]project.Ref, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	var refs []project.Ref
	seen := make(map[string]bool)
	walk(doc, func(n *html.Node) {
		href, ok := attr(n, "href")
		if !ok {
			return
		}
		ref, ok := project.ParseURL(href)
		if !ok || ref.Source != project.CurseForge {
			return
		}
		key := string(ref.Category) + "/" + strings.ToLower(ref.Slug)
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, ref)
	})
	return refs, nil
}

// CollectionRefs returns the Modrinth projects listed on a collection
// page, in page order, without duplicates. Only relative project anchors
// inside a result card are considered, and one-letter slugs are ignored.
func CollectionRefs(page []byte) ([]project.Ref, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	var refs []project.Ref
	seen := make(map[string]bool)
	walk(doc, func(n *html.Node) {
		href, ok := attr(n, "href")
		if !ok {
			return
		}
		m := collectionHref.FindStringSubmatch(href)
		if m == nil || len(m[2]) <= 1 || !inCard(n) {
			return
		}
		slug := m[2]
		if seen[slug] {
			return
		}
		seen[slug] = true
		refs = append(refs, project.Ref{Source: project.Modrinth, Slug: slug, Category: project.Category(m[1])})
	})
	return refs, nil
}

func parse(page []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "parse HTML")
	}
	return doc, nil
}

// walk calls fn for every anchor element below n, in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == "a" {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val), true
		}
	}
	return "", false
}

func inCard(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if class, ok := attr(p, "class"); ok && cardClass.MatchString(class) {
			return true
		}
	}
	return false
}

// errNoLinks describes a page without usable anchors.
func errNoLinks(what, ref string) error {
	return errors.New(errors.ErrCodeSeedUnreadable, "no %s found in %s", what, ref)
}
