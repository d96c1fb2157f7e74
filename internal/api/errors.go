package api

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/ZilDuck/nft-marketplace/internal/dev"
	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

const AccountHeader = "X-Account"

var (
	ErrMissingAccount = errs.New(errs.Authorization, "missing or invalid caller account")
	ErrInvalidAddress = errs.New(errs.Validation, "invalid address")
	ErrInvalidAmount  = errs.New(errs.Validation, "invalid amount")
	ErrInvalidId      = errs.New(errs.Validation, "invalid id")
	ErrInvalidBody    = errs.New(errs.Validation, "invalid request body")
)

func StatusOf(kind errs.Kind) int {
	switch kind {
	case errs.Validation:
		return http.StatusBadRequest
	case errs.Authorization:
		return http.StatusForbidden
	case errs.StateConflict:
		return http.StatusConflict
	case errs.PaymentMismatch:
		return http.StatusPaymentRequired
	case errs.TransferFailure:
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, name string, err error) {
	e := dev.NewError("Api", name, err, map[string]interface{}{"path": r.URL.Path})

	zap.L().With(
		zap.String("ref", e.Ref),
		zap.String("kind", string(e.Kind)),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	).Warn("Api: Request rejected")

	writeJson(w, StatusOf(e.Kind), ErrorResponse{Error: e.Error, Kind: string(e.Kind), Ref: e.Ref})
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func caller(r *http.Request) (common.Address, error) {
	account := r.Header.Get(AccountHeader)
	if !common.IsHexAddress(account) {
		return common.Address{}, ErrMissingAccount
	}
	addr := common.HexToAddress(account)
	if addr == (common.Address{}) {
		return common.Address{}, ErrMissingAccount
	}

	return addr, nil
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, xerrors.Errorf("%q: %w", value, ErrInvalidAddress)
	}

	return common.HexToAddress(value), nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, xerrors.Errorf("%q: %w", value, ErrInvalidAmount)
	}

	return amount, nil
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return xerrors.Errorf("%v: %w", err, ErrInvalidBody)
	}

	return nil
}
