package dev

import (
	"time"

	"github.com/ZilDuck/nft-marketplace/internal/errs"
	"github.com/nu7hatch/gouuid"
)

// Error is the record of a failed operation handed to API clients and logs.
// Ref ties a response to its log line.
type Error struct {
	Ref       string                 `json:"ref"`
	Time      time.Time              `json:"time"`
	Component string                 `json:"component"`
	Name      string                 `json:"name"`
	Kind      errs.Kind              `json:"kind"`
	Error     string                 `json:"error"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

func (e Error) Slug() string {
	return e.Ref
}

func NewError(component, name string, err error, extra map[string]interface{}) Error {
	ref := ""
	if u, uuidErr := uuid.NewV4(); uuidErr == nil {
		ref = u.String()
	}

	return Error{
		Ref:       ref,
		Time:      time.Now(),
		Component: component,
		Name:      name,
		Kind:      errs.KindOf(err),
		Error:     err.Error(),
		Extra:     extra,
	}
}
