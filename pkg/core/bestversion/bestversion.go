// Package bestversion picks the game version that most of a project set
// supports.
//
// Each project contributes its declared versions once (duplicates within a
// project are collapsed). Only strictly shaped release strings count:
// "1.20.1" and "1.20-pre.2" do, "Forge" or "1.20-Snapshot x" do not. The
// value with the highest count wins; equally popular values are ranked by
// their numeric tuple ([Tuple]) and the greatest is chosen.
//
// Selection is a pure function of the version multiset: the same input
// always yields the same version, whatever order the projects came in.
package bestversion

import (
	"context"
	"errors"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modfetch/pkg/core/project"
	"github.com/matzehuels/modfetch/pkg/core/registry"
)

// ErrNoVersions is returned when no project declares a usable version.
// The caller has to supply an explicit version instead.
var ErrNoVersions = errors.New("no valid game versions declared; specify a version")

var shape = regexp.MustCompile(`^\d+(\.\d+)+(-\w+(\.\d+)?)?$`)

// Valid reports whether v has the strict dotted-numeric release shape.
func Valid(v string) bool { return shape.MatchString(v) }

// Selection is the outcome of a best-version pick.
type Selection struct {
	Version string
	// Support is how many projects declare Version.
	Support int
	// Projects is how many projects were analyzed.
	Projects int
}

// Counts builds the version multiset: for each project's declared list,
// every valid version is counted once.
func Counts(declared [][]string) map[string]int {
	counts := make(map[string]int)
	for _, versions := range declared {
		seen := make(map[string]bool, len(versions))
		for _, v := range versions {
			if seen[v] || !Valid(v) {
				continue
			}
			seen[v] = true
			counts[v]++
		}
	}
	return counts
}

// Pick returns the most common version in counts and its count.
func Pick(counts map[string]int) (string, int, error) {
	best, support := "", 0
	for v, n := range counts {
		if n <= 0 {
			continue
		}
		if n > support || (n == support && newer(v, best)) {
			best, support = v, n
		}
	}
	if support == 0 {
		return "", 0, ErrNoVersions
	}
	return best, support, nil
}

// newer ranks a above b by numeric tuple. Equal tuples ("1.20" and
// "1.20-pre") fall back to string order so the result never depends on
// map iteration.
func newer(a, b string) bool {
	if c := slices.Compare(Tuple(a), Tuple(b)); c != 0 {
		return c > 0
	}
	return a > b
}

// Tuple parses a version into comparable numbers. The string is split on
// "." and "-", and each segment contributes its leading digit run. A
// segment with no digits is skipped, except that a version with no numbers
// at all becomes (0). A single leading letter is tolerated ("r2" is 2).
func Tuple(v string) []int {
	var parts []int
	for _, seg := range strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' }) {
		digits := leadingDigits(seg)
		if digits == "" {
			if len(parts) == 0 {
				parts = append(parts, 0)
			}
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return []int{0}
	}
	return parts
}

func leadingDigits(seg string) string {
	if len(seg) > 1 && !isDigit(seg[0]) {
		seg = seg[1:]
	}
	end := 0
	for end < len(seg) && isDigit(seg[end]) {
		end++
	}
	return seg[:end]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Selector fetches declared versions through the run's registries.
type Selector struct {
	regs registry.Set
	log  *log.Logger
}

// New creates a Selector over regs. A nil logger discards output.
func New(regs registry.Set, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Selector{regs: regs, log: logger}
}

// Select fetches every project's declared versions and picks the best
// one. Projects whose registry is not in the set contribute nothing.
func (s *Selector) Select(ctx context.Context, projects []*project.Project) (Selection, error) {
	declared := make([][]string, 0, len(projects))
	for _, p := range projects {
		r, ok := s.regs.For(p.Source)
		if !ok {
			continue
		}
		s.log.Debug("analyzing versions", "name", p.Label(), "registry", p.Source)
		declared = append(declared, r.ListDeclaredVersions(ctx, p))
	}

	v, n, err := Pick(Counts(declared))
	if err != nil {
		return Selection{Projects: len(projects)}, err
	}
	s.log.Info("selected game version", "version", v, "support", n, "projects", len(projects))
	return Selection{Version: v, Support: n, Projects: len(projects)}, nil
}
