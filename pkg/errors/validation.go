package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateFileName validates a registry-declared artifact filename before it
// is joined onto the destination directory. The name must be a plain
// basename: no separators, no traversal, no control characters.
func ValidateFileName(name string) error {
	if name == "" {
		return New(ErrCodeWriteFailure, "file name cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeWriteFailure, "file name too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeWriteFailure, "file name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeWriteFailure, "file name cannot contain path separators: %q", name)
	}

	if name == "." || name == ".." {
		return New(ErrCodeWriteFailure, "file name cannot be %q", name)
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// slugRegex matches project slugs as both registries publish them.
var slugRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// ValidateSlug validates a project slug taken from a URL or manifest.
func ValidateSlug(slug string) error {
	if slug == "" {
		return New(ErrCodeInvalidInput, "slug cannot be empty")
	}

	if len(slug) > 128 {
		return New(ErrCodeInvalidInput, "slug too long (max 128 characters)")
	}

	if !slugRegex.MatchString(slug) {
		return New(ErrCodeInvalidInput, "invalid slug: %q", slug)
	}

	return nil
}
