package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf_WalksWrappedChain(t *testing.T) {
	base := NotFound("Task not found")
	wrapped := fmt.Errorf("loading task: %w", base)

	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, Is(wrapped, KindNotFound))
	require.Equal(t, "Task not found", Message(wrapped))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, KindInternal, KindOf(err))
	require.Equal(t, "Internal server error", Message(err))
	require.False(t, Is(nil, KindInternal))
}

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalid:         http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindExpired:         http.StatusGone,
		KindTooLarge:        http.StatusRequestEntityTooLarge,
		KindUnavailable:     http.StatusServiceUnavailable,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestWrap_NilStaysNil(t *testing.T) {
	require.NoError(t, Wrap(nil, KindConflict, "dup"))

	err := Wrap(errors.New("unique"), KindConflict, "Slug already taken")
	require.Equal(t, KindConflict, KindOf(err))
	require.Contains(t, err.Error(), "unique")
}
