package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotator_RoundRobin(t *testing.T) {
	r := NewRotator([]string{"a:1", "b:2", "c:3"})

	var got []string
	for i := 0; i < 6; i++ {
		p, ok := r.Next()
		require.True(t, ok)
		got = append(got, p)
	}
	assert.Equal(t, []string{"a:1", "b:2", "c:3", "a:1", "b:2", "c:3"}, got)
}

func TestRotator_Empty(t *testing.T) {
	r := NewRotator(nil)
	p, ok := r.Next()
	assert.False(t, ok)
	assert.Empty(t, p)
}

func TestRotator_SkipsFailed(t *testing.T) {
	// With entry 2 failed mid-cycle, the next rotation must return
	// entry 3 then entry 1, never entry 2.
	r := NewRotator([]string{"p1:8080", "p2:8080", "p3:8080"})

	p, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "p1:8080", p)

	p, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "p2:8080", p)

	r.MarkFailed("p2:8080")

	p, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "p3:8080", p)

	p, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "p1:8080", p)

	p, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "p3:8080", p, "failed endpoint must stay excluded")

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.Usable())
}

func TestRotator_AllFailed(t *testing.T) {
	r := NewRotator([]string{"x:1", "y:2"})
	r.MarkFailed("x:1")
	r.MarkFailed("y:2")

	_, ok := r.Next()
	assert.False(t, ok, "no proxy when every endpoint failed")
	assert.Equal(t, 0, r.Usable())
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://1.2.3.4:8080", URL("1.2.3.4:8080"))
	assert.Equal(t, "http://1.2.3.4:8080", URL("http://1.2.3.4:8080"))
	assert.Equal(t, "socks5://1.2.3.4:1080", URL("socks5://1.2.3.4:1080"))
	assert.Empty(t, URL(""))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "# comment\n1.1.1.1:80\n\n2.2.2.2:8080\nhttp://3.3.3.3:3128\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	proxies, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1:80", "2.2.2.2:8080", "http://3.3.3.3:3128"}, proxies)
}

func TestLoadFile_Missing(t *testing.T) {
	proxies, err := LoadFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Nil(t, proxies)
}

func TestFetchFree_WritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("10.0.0.1:3128\r\n10.0.0.2:8080\r\nnot a proxy\n10.0.0.1:3128\n"))
	}))
	defer srv.Close()

	orig := freeListSources
	freeListSources = []string{srv.URL}
	defer func() { freeListSources = orig }()

	path := filepath.Join(t.TempDir(), "proxies.txt")
	n, err := FetchFree(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://10.0.0.1:3128", "http://10.0.0.2:8080"}, loaded)
}

func TestFetchFree_AllSourcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	orig := freeListSources
	freeListSources = []string{srv.URL}
	defer func() { freeListSources = orig }()

	_, err := FetchFree(context.Background(), filepath.Join(t.TempDir(), "p.txt"))
	require.Error(t, err)
}
