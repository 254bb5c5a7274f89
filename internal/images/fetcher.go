package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	errTooLarge         = errors.New("image exceeds size limit")
	errNotAnImage       = errors.New("content is not an image")
	errUnexpectedStatus = errors.New("unexpected response status")
	errForbiddenAddress = errors.New("image host resolves to a non-public address")
)

// sharedAddressSpace is the carrier-grade NAT range of RFC 6598
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Image is a fetched and validated image body
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Fetcher downloads remote images with a timeout and a size cap
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher. Requests are abandoned after timeout, bodies
// larger than maxBytes are rejected and only public addresses are dialed.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return newFetcher(timeout, maxBytes, rejectNonPublic)
}

func newFetcher(timeout time.Duration, maxBytes int64, control func(network, address string, c syscall.RawConn) error) *Fetcher {
	dialer := &net.Dialer{Timeout: timeout, Control: control}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		client:   &http.Client{Timeout: timeout, Transport: transport},
		maxBytes: maxBytes,
	}
}

// rejectNonPublic runs on every dial after DNS resolution, so redirects and
// hostnames that resolve into the private network are covered too.
func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil || !isPublic(addrPort.Addr()) {
		return fmt.Errorf("%w: %s", errForbiddenAddress, address)
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !sharedAddressSpace.Contains(addr)
}

// Fetch downloads rawURL and checks both the declared and the sniffed type
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	declared, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(declared, "image/") {
		return nil, fmt.Errorf("%w: declared %q", errNotAnImage, resp.Header.Get("Content-Type"))
	}

	if resp.ContentLength > f.maxBytes {
		return nil, errTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errTooLarge
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("%w: sniffed %q", errNotAnImage, detected.String())
	}

	return &Image{
		Data:        data,
		ContentType: detected.String(),
		Extension:   detected.Extension(),
	}, nil
}
