package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Panorama-Block/fairyring-monitor/internal/app"
)

const validHash = "6b1d3a5f0e9c2b7a8d4f1e3c5a7b9d2f4e6a8c0b1d3f5a7c9e2b4d6f8a0c1e3b"

func TestValidateTxHash(t *testing.T) {
	require.NoError(t, validateTxHash(validHash))
	require.NoError(t, validateTxHash(strings.ToUpper(validHash)))

	assert.ErrorContains(t, validateTxHash("0x"+validHash), "0x prefix")
	assert.Error(t, validateTxHash(validHash[:62]))
	assert.Error(t, validateTxHash("zz"+validHash[2:]))
}

func TestNormalizeAddress(t *testing.T) {
	addr, err := normalizeAddress("fairy1qg5ega6dykkxc307y25pecuufrjkxkaggkkxh7")
	require.NoError(t, err)
	assert.Equal(t, "fairy1qg5ega6dykkxc307y25pecuufrjkxkaggkkxh7", addr)

	addr, err = normalizeAddress("FAIRY1QG5EGA6DYKKXC307Y25PECUUFRJKXKAGGKKXH7")
	require.NoError(t, err)
	assert.Equal(t, "fairy1qg5ega6dykkxc307y25pecuufrjkxkaggkkxh7", addr)

	for _, bad := range []string{"", "Fairy1Mixed", "fairy1abc' OR 1=1", "noseparator"} {
		_, err := normalizeAddress(bad)
		assert.Error(t, err, bad)
	}
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"websocket_url", "rpc_url", "slack_webhook_url", "confirm_strategy", "log_level"} {
		t.Setenv(k, "")
	}
}

func TestRunUsageErrors(t *testing.T) {
	clearEnv(t)
	tests := map[string][]string{
		"no command":          {},
		"unknown command":     {"subscribe_blocks"},
		"extra argument":      {"subscribe_aggregated_key", "x"},
		"missing amount":      {"subscribe_transfer", "fairy1abc"},
		"bad amount":          {"subscribe_transfer", "fairy1abc", "10ufairy"},
		"negative amount":     {"subscribe_transfer", "fairy1abc", "-1"},
		"bad address":         {"subscribe_transfer", "fairy1'x", "10"},
		"prefixed hash":       {"subscribe_encrypted_tx", "0x" + validHash},
		"missing hash":        {"subscribe_encrypted_tx"},
		"bad strategy":        {"subscribe_encrypted_tx", "--strategy", "sometime", validHash},
		"missing environment": {"subscribe_aggregated_key"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, app.ExitUsage, run(context.Background(), args))
		})
	}
}

func TestRunKafkaSetupIsRuntimeError(t *testing.T) {
	clearEnv(t)
	t.Setenv("websocket_url", "ws://127.0.0.1:1/websocket")
	t.Setenv("rpc_url", "http://127.0.0.1:1")
	t.Setenv("slack_webhook_url", "http://127.0.0.1:1/hook")
	t.Setenv("kafka_broker", "127.0.0.1:1")
	// rejected by librdkafka when the producer is created
	t.Setenv("http_timeout", "2147484h")

	assert.Equal(t, app.ExitRuntime, run(context.Background(), []string{"subscribe_aggregated_key"}))
}

func TestRunInvalidStrategyOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("websocket_url", "ws://127.0.0.1:1/websocket")
	t.Setenv("rpc_url", "http://127.0.0.1:1")
	t.Setenv("slack_webhook_url", "http://127.0.0.1:1/hook")

	assert.Equal(t, app.ExitUsage, run(context.Background(), []string{"subscribe_encrypted_tx", "--strategy", "later", validHash}))
}
