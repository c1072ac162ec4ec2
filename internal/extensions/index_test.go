package extensions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const manifestBody = `{
	"custom_nodes": [
		{
			"author": "drdata",
			"title": "Manager",
			"reference": "https://github.com/drdata/manager",
			"files": ["https://github.com/drdata/manager"],
			"install_type": "git-clone",
			"description": "manages custom nodes"
		},
		{
			"author": "lily",
			"title": "Upscalers",
			"reference": "https://github.com/lily/upscalers",
			"files": ["https://github.com/lily/upscalers"],
			"install_type": "git-clone",
			"description": "extra upscale methods"
		}
	]
}`

func manifestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(manifestBody))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIndex_Available(t *testing.T) {
	server := manifestServer(t, nil)

	ix := NewIndex([]string{server.URL}, time.Minute)
	exts, err := ix.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, exts, 2)
	require.Equal(t, "Manager", exts[0].Title)
	require.Equal(t, []string{"https://github.com/drdata/manager"}, exts[0].Files)
	require.Equal(t, "git-clone", exts[1].InstallType)
}

func TestIndex_Available_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	server := manifestServer(t, &hits)

	ix := NewIndex([]string{server.URL}, time.Minute)

	_, err := ix.Available(context.Background())
	require.NoError(t, err)
	_, err = ix.Available(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), hits.Load())
}

func TestIndex_Available_ZeroTTLSkipsCache(t *testing.T) {
	var hits atomic.Int64
	server := manifestServer(t, &hits)

	ix := NewIndex([]string{server.URL}, 0)

	_, err := ix.Available(context.Background())
	require.NoError(t, err)
	_, err = ix.Available(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())
}

func TestIndex_Invalidate(t *testing.T) {
	var hits atomic.Int64
	server := manifestServer(t, &hits)

	ix := NewIndex([]string{server.URL}, time.Minute)

	_, err := ix.Available(context.Background())
	require.NoError(t, err)
	ix.Invalidate(context.Background())
	_, err = ix.Available(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load())
}

func TestIndex_Available_DeduplicatesAcrossSources(t *testing.T) {
	server := manifestServer(t, nil)

	ix := NewIndex([]string{server.URL, server.URL + "/"}, time.Minute)
	exts, err := ix.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, exts, 2)
}

func TestIndex_Available_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	ix := NewIndex([]string{server.URL}, time.Minute)
	_, err := ix.Available(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status")
}

func TestIndex_Available_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	t.Cleanup(server.Close)

	ix := NewIndex([]string{server.URL}, time.Minute)
	_, err := ix.Available(context.Background())
	require.Error(t, err)
}
