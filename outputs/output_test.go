package outputs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v-gu/mysqltc/config"
)

func TestNewOutput(t *testing.T) {
	cfg := &config.Config{}
	cfg.Init()

	opt, err := NewOutput("console", context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.NotNil(t, opt)
	require.NoError(t, opt.Stop())

	_, err = NewOutput("graphite", context.Background(), nil, cfg)
	assert.Error(t, err)
}
