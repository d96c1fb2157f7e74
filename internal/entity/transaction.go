package entity

import (
	"fmt"

	"github.com/gosimple/slug"
)

// Transaction is the indexed summary of a committed ledger transaction.
type Transaction struct {
	ID       string   `json:"id"`
	BlockNum uint64   `json:"blockNum"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Events   []string `json:"events"`
}

func (t Transaction) Slug() string {
	return CreateTransactionSlug(t.ID)
}

func CreateTransactionSlug(txId string) string {
	return slug.Make(fmt.Sprintf("tx-%s", txId))
}

func (t Transaction) HasEvent(name string) bool {
	for _, e := range t.Events {
		if e == name {
			return true
		}
	}

	return false
}
