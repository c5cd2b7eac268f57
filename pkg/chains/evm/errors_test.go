package evm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`unsupported network "base" (known: avalanche, avalanche-fuji)`,
		(&UnsupportedNetworkError{Network: "base"}).Error())

	cause := errors.New("connection refused")
	withOp := &RPCError{Endpoint: "https://node.example", Op: "eth_gasPrice", Err: cause}
	assert.Equal(t, "rpc eth_gasPrice https://node.example: connection refused", withOp.Error())
	assert.ErrorIs(t, withOp, cause)

	bare := &RPCError{Endpoint: "https://node.example", Err: cause}
	assert.Equal(t, "rpc https://node.example: connection refused", bare.Error())
}
