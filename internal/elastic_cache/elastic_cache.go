package elastic_cache

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/olivere/elastic/v7"
	"github.com/patrickmn/go-cache"
	"github.com/sha1sum/aws_signing_client"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	ErrNoClient        = errors.New("elastic client not configured")
	ErrPersistFailed   = errors.New("failed to persist requests")
	ErrTooManyAttempts = errors.New("failed to save entity, too many attempts")
)

type Index interface {
	GetClient() *elastic.Client

	InstallMappings() error

	AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction)
	AddUpdateRequest(index string, entity entity.Entity, reqAction RequestAction)
	HasRequest(entity entity.Entity) bool
	AddRequest(index string, entity entity.Entity, reqType RequestType, reqAction RequestAction)
	GetEntitiesByIndex(index string) []entity.Entity
	GetRequests() []Request
	GetRequest(id string) *Request
	ClearRequests()

	Save(index string, entity entity.Entity) error
	BatchPersist() (bool, error)
	Persist() (int, error)
}

type index struct {
	client *elastic.Client
	cache  *cache.Cache
	cfg    config.ElasticSearchConfig
}

type Request struct {
	Index  string
	Entity entity.Entity
	Type   RequestType
	Action RequestAction
}

type RequestType string

const (
	IndexRequest  RequestType = "index"
	UpdateRequest RequestType = "update"
)

type RequestAction string

const (
	TransactionCreate RequestAction = "TransactionCreate"

	NftMint     RequestAction = "NftMint"
	NftTransfer RequestAction = "NftTransfer"

	ListingCreate RequestAction = "ListingCreate"
	ListingSold   RequestAction = "ListingSold"

	NftAction RequestAction = "NftAction"
)

const (
	saveAttempts       int = 3
	batchPersistAmount int = 250
)

func New(cfg config.ElasticSearchConfig, aws config.AwsConfig) (Index, error) {
	client, err := newClient(cfg, aws)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticCache: Failed to create client")
		return nil, err
	}

	return NewIndex(client, cfg), nil
}

func NewIndex(client *elastic.Client, cfg config.ElasticSearchConfig) Index {
	return index{client, cache.New(5*time.Minute, 10*time.Minute), cfg}
}

func newClient(cfg config.ElasticSearchConfig, aws config.AwsConfig) (*elastic.Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.Hosts...),
		elastic.SetSniff(cfg.Sniff),
		elastic.SetHealthcheck(cfg.HealthCheck),
	}

	if cfg.Debug {
		opts = append(opts, elastic.SetTraceLog(ElasticLogger{}))
	}

	if cfg.Aws {
		creds := credentials.NewStaticCredentials(aws.AccessKey, aws.SecretKey, aws.Token)
		awsClient, err := aws_signing_client.New(v4.NewSigner(creds), nil, "es", aws.Region)
		if err != nil {
			return nil, err
		}

		opts = append(opts, elastic.SetHttpClient(awsClient))
		opts = append(opts, elastic.SetScheme("https"))
		return elastic.NewClient(opts...)
	}

	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	return elastic.NewClient(opts...)
}

// ElasticLogger routes the elastic trace log to zap at debug level.
type ElasticLogger struct{}

func (l ElasticLogger) Printf(format string, v ...interface{}) {
	zap.S().Debugf(format, v...)
}

func (i index) GetClient() *elastic.Client {
	return i.client
}

// InstallMappings creates one index per mapping file, named after the file.
func (i index) InstallMappings() error {
	if i.client == nil {
		return ErrNoClient
	}
	zap.L().Info("ElasticCache: Install Mappings")

	files, err := ioutil.ReadDir(i.cfg.MappingDir)
	if err != nil {
		return xerrors.Errorf("mappings directory %s: %w", i.cfg.MappingDir, err)
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		b, err := ioutil.ReadFile(filepath.Join(i.cfg.MappingDir, f.Name()))
		if err != nil {
			return xerrors.Errorf("mapping file %s: %w", f.Name(), err)
		}

		name := Indices(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())))
		if err = i.createIndex(name.Get(), b); err != nil {
			return xerrors.Errorf("create index %s: %w", name.Get(), err)
		}
	}

	return nil
}

func (i index) createIndex(index string, mapping []byte) error {
	ctx := context.Background()
	client := i.client

	exists, err := client.IndexExists(index).Do(ctx)
	if err != nil {
		return err
	}

	if exists && config.Get().Reindex {
		zap.S().Infof("ElasticCache: Deleting index %s", index)
		if _, err = client.DeleteIndex(index).Do(ctx); err != nil {
			return err
		}
		exists = false
	}

	if !exists {
		createIndex, err := client.CreateIndex(index).BodyString(string(mapping)).Do(ctx)
		if err != nil {
			return err
		}

		if createIndex.Acknowledged {
			zap.S().Infof("ElasticCache: Created index %s", index)
		}
	}

	return nil
}

func (i index) AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", index),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticCache: AddIndexRequest")

	i.AddRequest(index, entity, IndexRequest, reqAction)
}

// AddUpdateRequest merges into a pending request for the same document, so
// an update never overtakes the index request it modifies.
func (i index) AddUpdateRequest(index string, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", index),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticCache: AddUpdateRequest")

	if cached, found := i.cache.Get(entity.Slug()); found {
		entity = mergeRequests(cached.(Request), reqAction, entity)
		if cached.(Request).Type == IndexRequest {
			i.AddRequest(index, entity, IndexRequest, reqAction)
			return
		}
	}

	i.AddRequest(index, entity, UpdateRequest, reqAction)
}

func (i index) HasRequest(entity entity.Entity) bool {
	_, found := i.cache.Get(entity.Slug())

	return found
}

func (i index) AddRequest(index string, entity entity.Entity, reqType RequestType, reqAction RequestAction) {
	i.cache.Set(entity.Slug(), Request{index, entity, reqType, reqAction}, cache.NoExpiration)
}

func (i index) GetEntitiesByIndex(index string) []entity.Entity {
	entities := make([]entity.Entity, 0)
	for _, req := range i.GetRequests() {
		if req.Index == index {
			entities = append(entities, req.Entity)
		}
	}

	return entities
}

func (i index) GetRequests() []Request {
	requests := make([]Request, 0)

	for _, item := range i.cache.Items() {
		requests = append(requests, item.Object.(Request))
	}

	return requests
}

func (i index) GetRequest(id string) *Request {
	item, found := i.cache.Get(id)
	if !found {
		return nil
	}

	req := item.(Request)
	return &req
}

func (i index) ClearRequests() {
	i.cache.Flush()
}

func (i index) Save(index string, entity entity.Entity) error {
	return i.save(index, entity, 1)
}

func (i index) save(index string, entity entity.Entity, attempt int) error {
	if i.client == nil {
		return ErrNoClient
	}
	if attempt > saveAttempts {
		zap.L().With(zap.String("index", index), zap.String("slug", entity.Slug())).
			Error("ElasticCache: Failed to save entity, Too many attempts")
		return xerrors.Errorf("%s/%s: %w", index, entity.Slug(), ErrTooManyAttempts)
	}

	_, err := i.client.Index().
		Index(index).
		Id(entity.Slug()).
		BodyJson(entity).
		Do(context.Background())

	if err != nil {
		zap.L().With(zap.Error(err), zap.String("index", index), zap.String("slug", entity.Slug())).
			Error("ElasticCache: Failed to save entity")
		time.Sleep(1 * time.Second)

		return i.save(index, entity, attempt+1)
	}

	return nil
}

func (i index) BatchPersist() (bool, error) {
	actions := len(i.GetRequests())
	if actions < batchPersistAmount {
		return false, nil
	}

	start := time.Now()
	if _, err := i.Persist(); err != nil {
		return false, err
	}

	zap.L().With(
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("actions", actions),
	).Info("ElasticCache: Persisting data")

	return true, nil
}

// Persist flushes every buffered request in bulk batches and returns the
// number of actions sent.
func (i index) Persist() (int, error) {
	requests := i.GetRequests()
	if len(requests) == 0 {
		return 0, nil
	}
	if i.client == nil {
		return 0, ErrNoClient
	}

	total := 0
	bulk := i.client.Bulk()
	for _, r := range requests {
		if r.Type == IndexRequest {
			bulk.Add(elastic.NewBulkIndexRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		} else if r.Type == UpdateRequest {
			bulk.Add(elastic.NewBulkUpdateRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		}

		if bulk.NumberOfActions() >= i.bulkPersistCount() {
			total += bulk.NumberOfActions()
			if err := i.persist(bulk, 1); err != nil {
				return total, err
			}
			bulk = i.client.Bulk()
		}
	}

	if actions := bulk.NumberOfActions(); actions != 0 {
		total += actions
		if err := i.persist(bulk, 1); err != nil {
			return total, err
		}
	}

	zap.L().Debug("ElasticCache: Flushing ES cache")
	i.cache.Flush()

	return total, nil
}

func (i index) bulkPersistCount() int {
	if i.cfg.BulkPersistCount <= 0 {
		return 300
	}
	return i.cfg.BulkPersistCount
}

func (i index) persist(bulk *elastic.BulkService, attempt int) error {
	zap.S().Debugf("ElasticCache: Persisting %d actions", bulk.NumberOfActions())

	response, err := bulk.Refresh(i.cfg.Refresh).Do(context.Background())
	if err != nil {
		if attempt >= saveAttempts {
			zap.L().With(zap.Error(err)).Error("ElasticCache: Failed to persist requests")
			return xerrors.Errorf("%v: %w", err, ErrPersistFailed)
		}
		if elastic.IsStatusCode(err, 429) {
			zap.L().With(zap.Error(err)).Warn("ElasticCache: 429 (Too Many Requests)")
			time.Sleep(5 * time.Second)
		} else {
			time.Sleep(1 * time.Second)
		}
		return i.persist(bulk, attempt+1)
	}

	for _, failed := range response.Failed() {
		zap.L().With(
			zap.Any("error", failed.Error),
			zap.String("index", failed.Index),
			zap.String("id", failed.Id),
		).Error("ElasticCache: Failed to persist request. Retrying...")

		req := i.GetRequest(failed.Id)
		if req == nil {
			continue
		}
		if err := i.Save(failed.Index, req.Entity); err != nil {
			return err
		}
	}

	return nil
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %s (%s)", r.Type, r.Index, r.Entity.Slug(), r.Action)
}
