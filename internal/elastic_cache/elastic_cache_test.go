package elastic_cache

import (
	"bufio"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ZilDuck/nft-marketplace/internal/config"
	"github.com/ZilDuck/nft-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	nft    = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	seller = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	buyer  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func listing() entity.Listing {
	return entity.Listing{ItemID: 1, NFT: nft, TokenID: 1, Price: big.NewInt(100), Seller: seller}
}

func TestIndices(t *testing.T) {
	assert.Equal(t, "localhost.marketplace.listing", ListingIndex.Get())
	assert.Equal(t, "localhost.marketplace.nftaction", NftActionIndex.Get())
}

func TestUpdateMergesIntoPendingIndexRequest(t *testing.T) {
	i := NewIndex(nil, config.ElasticSearchConfig{})

	i.AddIndexRequest(ListingIndex.Get(), listing(), ListingCreate)

	sold := listing()
	sold.Sold = true
	sold.Buyer = buyer
	sold.Price = big.NewInt(999)
	i.AddUpdateRequest(ListingIndex.Get(), sold, ListingSold)

	require.Len(t, i.GetRequests(), 1)
	req := i.GetRequest(sold.Slug())
	require.NotNil(t, req)
	assert.Equal(t, IndexRequest, req.Type)

	merged := req.Entity.(entity.Listing)
	assert.True(t, merged.Sold)
	assert.Equal(t, buyer, merged.Buyer)
	assert.Equal(t, "100", merged.Price.String())
}

func TestUpdateWithoutPendingRequest(t *testing.T) {
	i := NewIndex(nil, config.ElasticSearchConfig{})

	token := entity.Token{Contract: nft, TokenID: 1, Owner: buyer, URI: "ipfs://abc"}
	i.AddUpdateRequest(NftIndex.Get(), token, NftTransfer)

	req := i.GetRequest(token.Slug())
	require.NotNil(t, req)
	assert.Equal(t, UpdateRequest, req.Type)
	assert.True(t, i.HasRequest(token))
	assert.Len(t, i.GetEntitiesByIndex(NftIndex.Get()), 1)
	assert.Empty(t, i.GetEntitiesByIndex(ListingIndex.Get()))

	i.ClearRequests()
	assert.False(t, i.HasRequest(token))
}

func TestPersistWithoutClient(t *testing.T) {
	i := NewIndex(nil, config.ElasticSearchConfig{})

	actions, err := i.Persist()
	require.NoError(t, err)
	assert.Equal(t, 0, actions)

	i.AddIndexRequest(ListingIndex.Get(), listing(), ListingCreate)
	_, err = i.Persist()
	require.ErrorIs(t, err, ErrNoClient)
	assert.Len(t, i.GetRequests(), 1)

	persisted, err := i.BatchPersist()
	require.NoError(t, err)
	assert.False(t, persisted)
	require.ErrorIs(t, i.InstallMappings(), ErrNoClient)
}

func TestPersistSendsBulkRequests(t *testing.T) {
	var mu sync.Mutex
	lines := make([]string, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		scanner := bufio.NewScanner(r.Body)
		mu.Lock()
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	}))
	defer srv.Close()

	client, err := elastic.NewClient(elastic.SetURL(srv.URL), elastic.SetSniff(false), elastic.SetHealthcheck(false))
	require.NoError(t, err)

	i := NewIndex(client, config.ElasticSearchConfig{BulkPersistCount: 1})
	i.AddIndexRequest(ListingIndex.Get(), listing(), ListingCreate)
	i.AddIndexRequest(TransactionIndex.Get(), entity.Transaction{ID: "0xabc", BlockNum: 2}, TransactionCreate)

	actions, err := i.Persist()
	require.NoError(t, err)
	assert.Equal(t, 2, actions)
	assert.Empty(t, i.GetRequests())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 4)
	body := strings.Join(lines, "\n")
	assert.Contains(t, body, `"_index":"localhost.marketplace.listing"`)
	assert.Contains(t, body, `"_id":"tx-0xabc"`)
}
