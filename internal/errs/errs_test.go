package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	sentinel := New(StateConflict, "already sold")
	err := xerrors.Errorf("purchase item 1: %w", sentinel)

	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, StateConflict, KindOf(err))
	assert.True(t, Is(err, StateConflict))
	assert.Equal(t, "purchase item 1: already sold", err.Error())
}

func TestKindOfOutermostWins(t *testing.T) {
	inner := New(Authorization, "not authorized")
	outer := New(TransferFailure, "transfer failed")
	err := xerrors.Errorf("forward (%v): %w", inner, outer)

	assert.Equal(t, TransferFailure, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, Internal))
}
