package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"cryptodash/internal/dataprocessing"
	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/files"
)

// Cache key prefixes by source kind.
const (
	keyPrefixFile   = "file:"
	keyPrefixRemote = "remote:"
)

// source is one link of the default source chain.
type source interface {
	// resolve returns the cache key for the current state of the source and
	// the slot shared by every state of it, or ok=false when the source is
	// not available.
	resolve(ctx context.Context) (key, slot string, ok bool)
	load(ctx context.Context) (*Snapshot, error)
	name() string
}

// fileSource reads the default price table from the data directories.
type fileSource struct {
	discovery *files.Discovery
	filename  string
	logger    *slog.Logger
}

func newFileSource(discovery *files.Discovery, filename string, logger *slog.Logger) *fileSource {
	return &fileSource{discovery: discovery, filename: filename, logger: logger}
}

func (s *fileSource) name() string { return "file" }

// resolve keys the file by absolute path, size and modification time so an
// edited file is read again. The slot is the path alone.
func (s *fileSource) resolve(ctx context.Context) (string, string, bool) {
	p, err := s.discovery.Locate(s.filename)
	if err != nil {
		s.logger.DebugContext(ctx, "default data file not found", slog.String("error", err.Error()))
		return "", "", false
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	info, err := files.Stat(p)
	if err != nil {
		return "", "", false
	}
	slot := keyPrefixFile + p + ":"
	return slot + strconv.FormatInt(info.Size, 10) + ":" + strconv.FormatInt(info.ModTime.UnixNano(), 10), slot, true
}

func (s *fileSource) load(ctx context.Context) (*Snapshot, error) {
	p, err := s.discovery.Locate(s.filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDataSource, err)
	}
	records, err := dataprocessing.ParseFile(p)
	if err != nil {
		if errors.Is(err, ErrMalformedInput) {
			return nil, err
		}
		return nil, apierrors.NewStorageError("failed to read data file", err).WithContext("path", p)
	}
	return &Snapshot{
		Source:   filepath.Base(p),
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

// remoteSource fetches a price table over HTTP.
type remoteSource struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

func newRemoteSource(rawURL string, timeout time.Duration, logger *slog.Logger) *remoteSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")
	return &remoteSource{client: client, url: rawURL, logger: logger}
}

func (s *remoteSource) name() string { return "remote" }

func (s *remoteSource) resolve(context.Context) (string, string, bool) {
	key := keyPrefixRemote + s.url
	return key, key, s.url != ""
}

func (s *remoteSource) load(ctx context.Context) (*Snapshot, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, apierrors.NewNetworkError("remote fetch failed", err).WithContext("url", s.url)
	}
	if resp.IsError() {
		return nil, apierrors.NewNetworkError("remote fetch failed",
			fmt.Errorf("unexpected status %d", resp.StatusCode())).WithContext("url", s.url)
	}

	records, err := dataprocessing.Parse(bytes.NewReader(resp.Body()), dataprocessing.DetectFormat(remoteName(s.url)))
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Source:   s.url,
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

// remoteName is the last path element of a URL, used for format detection.
func remoteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}
