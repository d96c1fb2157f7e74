package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/ledger"
	"github.com/ZilDuck/nft-marketplace/internal/service/catalog"
	"github.com/ZilDuck/nft-marketplace/internal/service/market"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type Server struct {
	ledger  *ledger.Ledger
	market  market.Service
	catalog catalog.Service
}

func NewServer(l *ledger.Ledger, marketService market.Service, catalogService catalog.Service) Server {
	return Server{l, marketService, catalogService}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/contracts", s.handleContracts).Methods("GET")

	r.HandleFunc("/tokens", s.handleMint).Methods("POST")
	r.HandleFunc("/tokens/count", s.handleTokenCount).Methods("GET")
	r.HandleFunc("/tokens/{id:[0-9]+}", s.handleGetToken).Methods("GET")
	r.HandleFunc("/approvals", s.handleApproval).Methods("POST")

	r.HandleFunc("/items", s.handleListItem).Methods("POST")
	r.HandleFunc("/items", s.handleGetItems).Methods("GET")
	r.HandleFunc("/items/count", s.handleItemCount).Methods("GET")
	r.HandleFunc("/items/{id:[0-9]+}", s.handleGetItem).Methods("GET")
	r.HandleFunc("/items/{id:[0-9]+}/total-price", s.handleTotalPrice).Methods("GET")
	r.HandleFunc("/items/{id:[0-9]+}/purchase", s.handlePurchase).Methods("POST")

	r.HandleFunc("/accounts/{address}/balance", s.handleBalance).Methods("GET")

	r.HandleFunc("/catalog/market", s.handleMarketItems).Methods("GET")
	r.HandleFunc("/catalog/listed/{address}", s.handleListedItems).Methods("GET")
	r.HandleFunc("/catalog/purchases/{address}", s.handlePurchases).Methods("GET")

	r.NotFoundHandler = notFoundHandler()
	r.Use(loggingMiddleware)

	return r
}

// ListenAndServe serves the api on port until ctx is cancelled.
func (s Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().With(zap.String("port", port)).Info("Api: Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		zap.L().Info("Api: Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, HealthResponse{Status: "ok", BlockNum: s.ledger.BlockNumber()})
}

func (s Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, newContractsResponse(s.market.Contracts()))
}

func (s Server) handleMint(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeError(w, r, "Mint", err)
		return
	}

	var req MintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "Mint", err)
		return
	}

	tokenId, receipt, err := s.market.Mint(r.Context(), from, req.Uri)
	if err != nil {
		writeError(w, r, "Mint", err)
		return
	}

	writeJson(w, http.StatusCreated, MintResponse{TokenID: tokenId, Receipt: newReceiptResponse(receipt)})
}

func (s Server) handleTokenCount(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, CountResponse{Count: s.market.TokenCount()})
}

func (s Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tokenId, err := getId(r)
	if err != nil {
		writeError(w, r, "GetToken", err)
		return
	}

	token, err := s.market.Token(tokenId)
	if err != nil {
		writeError(w, r, "GetToken", err)
		return
	}

	writeJson(w, http.StatusOK, newTokenResponse(token))
}

func (s Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeError(w, r, "SetApprovalForAll", err)
		return
	}

	var req ApprovalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "SetApprovalForAll", err)
		return
	}
	operator, err := parseAddress(req.Operator)
	if err != nil {
		writeError(w, r, "SetApprovalForAll", err)
		return
	}

	receipt, err := s.market.SetApprovalForAll(r.Context(), from, operator, req.Approved)
	if err != nil {
		writeError(w, r, "SetApprovalForAll", err)
		return
	}

	writeJson(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s Server) handleListItem(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeError(w, r, "ListItem", err)
		return
	}

	var req ListRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "ListItem", err)
		return
	}
	tokenContract, err := parseAddress(req.TokenContract)
	if err != nil {
		writeError(w, r, "ListItem", err)
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, r, "ListItem", err)
		return
	}

	itemId, receipt, err := s.market.ListItem(r.Context(), from, tokenContract, req.TokenID, price)
	if err != nil {
		writeError(w, r, "ListItem", err)
		return
	}

	writeJson(w, http.StatusCreated, ListResponse{ItemID: itemId, Receipt: newReceiptResponse(receipt)})
}

func (s Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	items := make([]ItemResponse, 0)
	for _, item := range s.market.Items() {
		items = append(items, newItemResponse(item))
	}

	writeJson(w, http.StatusOK, items)
}

func (s Server) handleItemCount(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, CountResponse{Count: s.market.ItemCount()})
}

func (s Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemId, err := getId(r)
	if err != nil {
		writeError(w, r, "GetItem", err)
		return
	}

	item, err := s.market.Item(itemId)
	if err != nil {
		writeError(w, r, "GetItem", err)
		return
	}

	writeJson(w, http.StatusOK, newItemResponse(item))
}

func (s Server) handleTotalPrice(w http.ResponseWriter, r *http.Request) {
	itemId, err := getId(r)
	if err != nil {
		writeError(w, r, "TotalPrice", err)
		return
	}

	total, err := s.market.TotalPrice(itemId)
	if err != nil {
		writeError(w, r, "TotalPrice", err)
		return
	}

	writeJson(w, http.StatusOK, TotalPriceResponse{ItemID: itemId, TotalPrice: total.String()})
}

func (s Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeError(w, r, "PurchaseItem", err)
		return
	}
	itemId, err := getId(r)
	if err != nil {
		writeError(w, r, "PurchaseItem", err)
		return
	}

	var req PurchaseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "PurchaseItem", err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		writeError(w, r, "PurchaseItem", err)
		return
	}

	receipt, err := s.market.PurchaseItem(r.Context(), from, itemId, value)
	if err != nil {
		writeError(w, r, "PurchaseItem", err)
		return
	}

	writeJson(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, r, "Balance", err)
		return
	}

	writeJson(w, http.StatusOK, BalanceResponse{Address: addr.Hex(), Balance: s.market.BalanceOf(addr).String()})
}

func (s Server) handleMarketItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.MarketItems(r.Context())
	if err != nil {
		writeError(w, r, "MarketItems", err)
		return
	}

	writeJson(w, http.StatusOK, newMarketItemResponses(items))
}

func (s Server) handleListedItems(w http.ResponseWriter, r *http.Request) {
	seller, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, r, "ListedItems", err)
		return
	}

	listed, sold, err := s.catalog.ListedItems(r.Context(), seller)
	if err != nil {
		writeError(w, r, "ListedItems", err)
		return
	}

	writeJson(w, http.StatusOK, ListedResponse{Listed: newMarketItemResponses(listed), Sold: newMarketItemResponses(sold)})
}

func (s Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	buyer, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, r, "Purchases", err)
		return
	}

	items, err := s.catalog.Purchases(r.Context(), buyer)
	if err != nil {
		writeError(w, r, "Purchases", err)
		return
	}

	writeJson(w, http.StatusOK, newMarketItemResponses(items))
}

func getId(r *http.Request) (uint64, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return 0, ErrInvalidId
	}

	value, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("%q: %w", id, ErrInvalidId)
	}

	return value, nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		).Debug("Api: Request")
	})
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("%s not found", r.URL.Path), Kind: "not_found"})
	})
}
