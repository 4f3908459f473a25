package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleFiltering(t *testing.T) {
	var buf bytes.Buffer
	prev := Root()
	defer SetDefault(prev)
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(&buf, LevelTrace, false)))

	DisableModule(ZkAppMonitoring)
	Debug(ZkAppMonitoring, "hidden step")
	assert.Empty(t, buf.String())

	EnableModules("zkapp, ledger_mod")
	defer DisableModule(ZkAppMonitoring)
	defer DisableModule(LedgerMonitoring)
	Debug(ZkAppMonitoring, "visible step", "index", 3)
	assert.Contains(t, buf.String(), "visible step")
	assert.Contains(t, buf.String(), "module=zkapp")
	assert.Contains(t, buf.String(), "level=debug")

	buf.Reset()
	Warn(TxLogicMonitoring, "rejected")
	assert.Contains(t, buf.String(), "level=warn")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
