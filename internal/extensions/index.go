package extensions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/easel-dev/easel/internal/cachemanager"
	"github.com/easel-dev/easel/internal/log"
)

// manifestFile is the on-wire shape of a custom-node-list manifest.
// The schema is owned by the extension ecosystem, we consume it as-is.
type manifestFile struct {
	CustomNodes []manifestNode `json:"custom_nodes"`
}

type manifestNode struct {
	Author      string   `json:"author"`
	Title       string   `json:"title"`
	Reference   string   `json:"reference"`
	Files       []string `json:"files"`
	InstallType string   `json:"install_type"`
	Description string   `json:"description"`
}

// Index fetches available extensions from manifest sources, caching
// each source's response for the configured TTL.
type Index struct {
	urls  []string
	ttl   time.Duration
	http  *http.Client
	store *cachemanager.InMemoryCacheManager[string, []Extension]
	cache *cachemanager.ReadThroughCache[string, []Extension, string]
}

// NewIndex builds an index over the given manifest URLs. A non-positive
// ttl disables caching.
func NewIndex(urls []string, ttl time.Duration) *Index {
	ix := &Index{
		urls: urls,
		ttl:  ttl,
		http: &http.Client{Timeout: 30 * time.Second},
		store: cachemanager.NewInMemoryCacheManager[string, []Extension](
			"extension-manifests", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
	}
	ix.cache = cachemanager.NewReadThroughCache[string, []Extension, string](ix.store, ix.fetch, ttl <= 0)
	return ix
}

// Available returns the extensions declared by all manifest sources.
// Duplicate identities across sources keep the first occurrence, so the
// result is always an identity-keyed set.
func (ix *Index) Available(ctx context.Context) ([]Extension, error) {
	var out []Extension
	seen := make(map[string]struct{})
	for _, url := range ix.urls {
		exts, err := ix.cache.Get(ctx, url, url, ix.ttl)
		if err != nil {
			return nil, err
		}
		for _, ext := range exts {
			if _, ok := seen[ext.Identity()]; ok {
				continue
			}
			seen[ext.Identity()] = struct{}{}
			out = append(out, ext)
		}
	}
	return out, nil
}

// Invalidate drops all cached manifest responses so the next Available
// call re-fetches.
func (ix *Index) Invalidate(ctx context.Context) {
	if err := ix.store.Flush(ctx); err != nil {
		log.ErrorErr(log.CatExt, "failed to flush manifest cache", err)
	}
}

func (ix *Index) fetch(ctx context.Context, url string) ([]Extension, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := ix.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extensions: manifest %s: unexpected status %s", url, resp.Status)
	}

	var manifest manifestFile
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("extensions: manifest %s: %w", url, err)
	}

	exts := make([]Extension, 0, len(manifest.CustomNodes))
	for _, node := range manifest.CustomNodes {
		exts = append(exts, Extension{
			Author:      node.Author,
			Title:       node.Title,
			Reference:   node.Reference,
			Files:       node.Files,
			Description: node.Description,
			InstallType: node.InstallType,
		})
	}
	log.Debug(log.CatExt, "fetched manifest", "url", url, "extensions", len(exts))
	return exts, nil
}
