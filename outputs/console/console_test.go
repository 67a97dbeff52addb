package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v-gu/mysqltc/config"
	"github.com/v-gu/mysqltc/model"
)

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Init()
	return cfg
}

func TestConsoleOutput(t *testing.T) {
	out, err := New(context.Background(), []byte(`{"queueSize": 4}`), defaultConfig())
	require.NoError(t, err)
	var buf bytes.Buffer
	out.logger.Out = &buf

	require.NoError(t, out.Start())
	out.SaveMessage(&model.LogRecord{ServerId: "5", Position: model.Position{File: "mysql-bin.000001", Offset: 4}})
	out.SaveMessage(&model.LogRecord{ServerId: "6", Position: model.Position{File: "mysql-bin.000002", Offset: 8}})
	require.NoError(t, out.Stop())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "5", entry["server_id"])
	assert.Equal(t, "mysql-bin.000001", entry["binlog_file"])
	assert.Equal(t, float64(4), entry["offset"])
	assert.Equal(t, "replication progress", entry["msg"])

	// dropped once stopped
	out.SaveMessage(&model.LogRecord{ServerId: "7", Position: model.Position{File: "x", Offset: 1}})
}

func TestConsoleOutputBadConfig(t *testing.T) {
	_, err := New(context.Background(), []byte(`{"format": 1}`), defaultConfig())
	assert.Error(t, err)
}

func TestConsoleOutputQueueSize(t *testing.T) {
	cfg := defaultConfig()
	cfg.Stat.QueueSize = 7

	out, err := New(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, cap(out.msgs))

	out, err = New(context.Background(), []byte(`{"queueSize": 3}`), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, cap(out.msgs))
}

func TestConsoleOutputStopWithoutStart(t *testing.T) {
	out, err := New(context.Background(), nil, defaultConfig())
	require.NoError(t, err)
	assert.NoError(t, out.Stop())
}
