package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/api"
	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/xerrors"
)

// Error is a request the api rejected.
type Error struct {
	Status int
	Kind   errs.Kind
	Msg    string
	Ref    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s, ref %s)", e.Msg, e.Kind, e.Ref)
}

// Client talks to the marketplace api as one account. Reads are retried,
// writes are sent once.
type Client struct {
	baseUrl string
	account common.Address
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
}

func New(baseUrl string, account common.Address, logger interface{}) *Client {
	reads := retryablehttp.NewClient()
	reads.RetryMax = 3
	reads.RetryWaitMin = 100 * time.Millisecond
	reads.RetryWaitMax = time.Second
	reads.Logger = logger
	reads.ErrorHandler = retryablehttp.PassthroughErrorHandler

	writes := retryablehttp.NewClient()
	writes.RetryMax = 0
	writes.Logger = logger
	writes.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{strings.TrimSuffix(baseUrl, "/"), account, reads, writes}
}

func (c *Client) Account() common.Address {
	return c.account
}

func (c *Client) Contracts(ctx context.Context) (resp api.ContractsResponse, err error) {
	err = c.get(ctx, "/contracts", &resp)
	return
}

func (c *Client) Mint(ctx context.Context, uri string) (resp api.MintResponse, err error) {
	err = c.post(ctx, "/tokens", api.MintRequest{Uri: uri}, &resp)
	return
}

func (c *Client) Token(ctx context.Context, tokenId uint64) (resp api.TokenResponse, err error) {
	err = c.get(ctx, fmt.Sprintf("/tokens/%d", tokenId), &resp)
	return
}

func (c *Client) SetApprovalForAll(ctx context.Context, operator common.Address, approved bool) (resp api.ReceiptResponse, err error) {
	err = c.post(ctx, "/approvals", api.ApprovalRequest{Operator: operator.Hex(), Approved: approved}, &resp)
	return
}

func (c *Client) ListItem(ctx context.Context, tokenContract common.Address, tokenId uint64, price string) (resp api.ListResponse, err error) {
	err = c.post(ctx, "/items", api.ListRequest{TokenContract: tokenContract.Hex(), TokenID: tokenId, Price: price}, &resp)
	return
}

func (c *Client) Items(ctx context.Context) (resp []api.ItemResponse, err error) {
	err = c.get(ctx, "/items", &resp)
	return
}

func (c *Client) Item(ctx context.Context, itemId uint64) (resp api.ItemResponse, err error) {
	err = c.get(ctx, fmt.Sprintf("/items/%d", itemId), &resp)
	return
}

func (c *Client) TotalPrice(ctx context.Context, itemId uint64) (resp api.TotalPriceResponse, err error) {
	err = c.get(ctx, fmt.Sprintf("/items/%d/total-price", itemId), &resp)
	return
}

func (c *Client) PurchaseItem(ctx context.Context, itemId uint64, value string) (resp api.ReceiptResponse, err error) {
	err = c.post(ctx, fmt.Sprintf("/items/%d/purchase", itemId), api.PurchaseRequest{Value: value}, &resp)
	return
}

// Buy pays the current total price of an item.
func (c *Client) Buy(ctx context.Context, itemId uint64) (api.ReceiptResponse, error) {
	total, err := c.TotalPrice(ctx, itemId)
	if err != nil {
		return api.ReceiptResponse{}, err
	}

	return c.PurchaseItem(ctx, itemId, total.TotalPrice)
}

func (c *Client) Balance(ctx context.Context, addr common.Address) (resp api.BalanceResponse, err error) {
	err = c.get(ctx, "/accounts/"+addr.Hex()+"/balance", &resp)
	return
}

func (c *Client) MarketItems(ctx context.Context) (resp []api.MarketItemResponse, err error) {
	err = c.get(ctx, "/catalog/market", &resp)
	return
}

func (c *Client) ListedItems(ctx context.Context, seller common.Address) (resp api.ListedResponse, err error) {
	err = c.get(ctx, "/catalog/listed/"+seller.Hex(), &resp)
	return
}

func (c *Client) Purchases(ctx context.Context, buyer common.Address) (resp []api.MarketItemResponse, err error) {
	err = c.get(ctx, "/catalog/purchases/"+buyer.Hex(), &resp)
	return
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.baseUrl+path, nil)
	if err != nil {
		return err
	}

	return c.do(ctx, c.reads, req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPost, c.baseUrl+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, c.writes, req, out)
}

func (c *Client) do(ctx context.Context, client *retryablehttp.Client, req *retryablehttp.Request, out interface{}) error {
	req = req.WithContext(ctx)
	req.Header.Set(api.AccountHeader, c.account.Hex())

	resp, err := client.Do(req)
	if err != nil {
		return xerrors.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e api.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			return &Error{Status: resp.StatusCode, Kind: errs.Internal, Msg: resp.Status}
		}
		return &Error{Status: resp.StatusCode, Kind: errs.Kind(e.Kind), Msg: e.Error, Ref: e.Ref}
	}

	return json.Unmarshal(body, out)
}
