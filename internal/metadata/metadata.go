package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ZilDuck/nft-marketplace/internal/helper"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	ErrEmptyUri            = errors.New("metadata uri is empty")
	ErrMetadataUnavailable = errors.New("metadata not available")
	ErrInvalidMetadata     = errors.New("metadata is not a valid document")
)

type Service interface {
	Fetch(ctx context.Context, uri string) (entity.Metadata, error)
}

type service struct {
	client  *retryablehttp.Client
	cache   *cache.Cache
	gateway string
}

func NewMetadataService(client *retryablehttp.Client, c *cache.Cache, gateway string) Service {
	return service{client, c, gateway}
}

// NewClient builds the retrying http client used to fetch token metadata.
func NewClient(retries int, timeout time.Duration, logger interface{}) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = logger

	return client
}

// Fetch returns the metadata document a token uri points at. Documents are
// cached by uri; ipfs uris and images are resolved through the gateway.
func (s service) Fetch(ctx context.Context, uri string) (entity.Metadata, error) {
	if uri == "" {
		return entity.Metadata{}, ErrEmptyUri
	}

	if cached, found := s.cache.Get(uri); found {
		return cached.(entity.Metadata), nil
	}

	location := helper.ResolveIpfs(uri, s.gateway)
	req, err := retryablehttp.NewRequest(http.MethodGet, location, nil)
	if err != nil {
		return entity.Metadata{}, xerrors.Errorf("%s (%v): %w", uri, err, ErrMetadataUnavailable)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("uri", uri)).Warn("Metadata: Fetch failed")
		return entity.Metadata{}, xerrors.Errorf("%s (%v): %w", uri, err, ErrMetadataUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.Metadata{}, xerrors.Errorf("%s (%s): %w", uri, resp.Status, ErrMetadataUnavailable)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return entity.Metadata{}, xerrors.Errorf("%s (%v): %w", uri, err, ErrMetadataUnavailable)
	}

	var md entity.Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return entity.Metadata{}, xerrors.Errorf("%s (%v): %w", uri, err, ErrInvalidMetadata)
	}
	md.Uri = uri
	md.Image = helper.ResolveIpfs(md.Image, s.gateway)

	s.cache.Set(uri, md, cache.DefaultExpiration)
	zap.L().With(zap.String("uri", uri), zap.String("name", md.Name)).Debug("Metadata: Fetched")

	return md, nil
}
