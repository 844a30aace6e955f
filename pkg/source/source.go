package source

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"github.com/matzehuels/modfetch/pkg/errors"
	"github.com/matzehuels/modfetch/pkg/integrations"
)

// Reader loads seed documents from disk or over HTTP.
type Reader struct {
	fs     afero.Fs
	client *integrations.Client
}

// NewReader creates a Reader. Local paths are read from fs (the OS
// filesystem when nil); URLs are fetched with client, which may be nil if
// only local seeds are used.
func NewReader(fs afero.Fs, client *integrations.Client) *Reader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Reader{fs: fs, client: client}
}

// IsURL reports whether ref should be fetched rather than opened.
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Read returns the document at ref.
func (r *Reader) Read(ctx context.Context, ref string) ([]byte, error) {
	if IsURL(ref) {
		if r.client == nil {
			return nil, errors.New(errors.ErrCodeSeedUnreadable, "cannot fetch %s: no HTTP client", ref)
		}
		text, err := r.client.GetText(ctx, ref)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "fetch %s", ref)
		}
		return []byte(text), nil
	}
	data, err := afero.ReadFile(r.fs, ref)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSeedUnreadable, err, "read %s", ref)
	}
	return data, nil
}
