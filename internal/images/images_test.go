package images

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"marketplace/internal/domain"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBody = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func imageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// localFetcher dials any address so tests can use httptest servers on loopback
func localFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return newFetcher(timeout, maxBytes, nil)
}

func TestFetcher_AcceptsImage(t *testing.T) {
	srv := imageServer(t, "image/png", pngBody)

	img, err := localFetcher(time.Second, 1<<20).Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)
	assert.Equal(t, pngBody, img.Data)
}

func TestFetcher_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		maxBytes    int64
		wantErr     error
	}{
		{"declared non-image", "text/html", pngBody, 1 << 20, errNotAnImage},
		{"sniffed non-image", "image/png", []byte("<html><body>hi</body></html>"), 1 << 20, errNotAnImage},
		{"too large", "image/png", pngBody, 16, errTooLarge},
		{"missing content type", "", pngBody, 1 << 20, errNotAnImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := imageServer(t, tt.contentType, tt.body)
			_, err := localFetcher(time.Second, tt.maxBytes).Fetch(context.Background(), srv.URL)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetcher_RejectsStreamedBodyOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		// Flushing forces chunked encoding so no Content-Length is sent.
		_, _ = w.Write(pngBody[:8])
		w.(http.Flusher).Flush()
		_, _ = w.Write(bytes.Repeat([]byte{0}, 128))
	}))
	defer srv.Close()

	_, err := localFetcher(time.Second, 64).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, errTooLarge)
}

func TestFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := localFetcher(50*time.Millisecond, 1<<20).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetcher_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := localFetcher(time.Second, 1<<20).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, errUnexpectedStatus)
}

func TestFetcher_RefusesNonPublicHosts(t *testing.T) {
	srv := imageServer(t, "image/png", pngBody)
	fetcher := NewFetcher(time.Second, 1<<20)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, errForbiddenAddress)

	_, err = NewResolver(fetcher, nil, zap.NewNop()).Resolve(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:4700:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.10", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"224.0.0.1", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublic(netip.MustParseAddr(tt.addr)))
		})
	}
}

type memoryStore struct {
	keys []string
	err  error
}

func (s *memoryStore) Put(_ context.Context, key string, _ *Image) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func TestResolver(t *testing.T) {
	good := imageServer(t, "image/png", pngBody)
	bad := imageServer(t, "text/plain", []byte("nope"))
	fetcher := localFetcher(time.Second, 1<<20)
	logger := zap.NewNop()

	t.Run("empty URL stays empty", func(t *testing.T) {
		url, err := NewResolver(fetcher, nil, logger).Resolve(context.Background(), "  ")
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	t.Run("non-http scheme", func(t *testing.T) {
		_, err := NewResolver(fetcher, nil, logger).Resolve(context.Background(), "ftp://example.com/a.png")
		assert.ErrorIs(t, err, domain.ErrInvalidImage)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("fetch failure hides the cause", func(t *testing.T) {
		_, err := NewResolver(fetcher, nil, logger).Resolve(context.Background(), bad.URL)
		assert.ErrorIs(t, err, domain.ErrInvalidImage)
		assert.NotContains(t, err.Error(), "text/plain")
	})

	t.Run("source URL kept without store", func(t *testing.T) {
		url, err := NewResolver(fetcher, nil, logger).Resolve(context.Background(), good.URL+"/p.png")
		require.NoError(t, err)
		assert.Equal(t, good.URL+"/p.png", url)
	})

	t.Run("stored URL replaces source", func(t *testing.T) {
		store := &memoryStore{}
		url, err := NewResolver(fetcher, store, logger).Resolve(context.Background(), good.URL)
		require.NoError(t, err)
		require.Len(t, store.keys, 1)
		assert.True(t, strings.HasPrefix(store.keys[0], "products/"))
		assert.True(t, strings.HasSuffix(store.keys[0], ".png"))
		assert.Equal(t, "https://cdn.example.com/"+store.keys[0], url)
	})

	t.Run("store failure is not a validation error", func(t *testing.T) {
		store := &memoryStore{err: errors.New("bucket unavailable")}
		_, err := NewResolver(fetcher, store, logger).Resolve(context.Background(), good.URL)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrValidation)
	})
}

type recordingPutter struct {
	input *s3.PutObjectInput
}

func (p *recordingPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.input = params
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	putter := &recordingPutter{}
	store := &S3Store{client: putter, bucket: "media", region: "eu-west-1"}

	url, err := store.Put(context.Background(), "products/x.png", &Image{Data: pngBody, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/products/x.png", url)
	assert.Equal(t, "media", *putter.input.Bucket)
	assert.Equal(t, "image/png", *putter.input.ContentType)

	store.publicBaseURL = "https://cdn.example.com/"
	url, err = store.Put(context.Background(), "products/y.png", &Image{Data: pngBody, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/products/y.png", url)
}
