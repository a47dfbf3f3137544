package cli

import (
	"path/filepath"

	"github.com/roach88/reanchor/internal/dom"
	"github.com/roach88/reanchor/internal/store"
)

// documentKey is the name a document's annotations are stored under.
func documentKey(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// loadDocument parses path with the configured dom options.
func loadDocument(opts *RootOptions, path string, extra ...dom.Option) (*dom.Document, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}
	return dom.Load(path, append(cfg.DocumentOptions(), extra...)...)
}

// openStore opens --db, falling back to the configured database.
func openStore(opts *RootOptions, dbFlag string) (*store.Store, error) {
	path := dbFlag
	if path == "" {
		cfg, err := opts.Config()
		if err != nil {
			return nil, err
		}
		path = cfg.Database
	}
	return store.Open(path)
}
