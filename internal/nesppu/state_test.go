package nesppu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tetra-core/internal/state"
)

func newStateWriter() *state.Writer { return state.NewWriter() }

func newStateReader(t *testing.T, data []byte) *state.Reader {
	t.Helper()
	r, err := state.NewReader(data)
	require.NoError(t, err)
	return r
}
