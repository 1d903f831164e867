package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/logger"
)

func testRuntime(buf *bytes.Buffer) *Runtime {
	return &Runtime{
		Kind:   "test",
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: buf, Level: zerolog.DebugLevel}),
	}
}

func TestCloseRunsInReverseAndKeepsGoing(t *testing.T) {
	var buf bytes.Buffer
	rt := testRuntime(&buf)
	var order []string
	rt.OnClose("database", func() error { order = append(order, "database"); return nil })
	rt.OnClose("redis", func() error { order = append(order, "redis"); return errors.New("conn reset") })
	rt.OnClose("pubsub", func() error { order = append(order, "pubsub"); return nil })

	rt.Close()
	rt.Close()

	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)
	assert.Contains(t, buf.String(), `"resource":"redis"`)
	assert.Equal(t, 1, strings.Count(buf.String(), "close failed"))
}

func TestRunTreatsCancellationAsCleanExit(t *testing.T) {
	var buf bytes.Buffer
	rt := testRuntime(&buf)

	code := rt.run(context.Background(), func(ctx context.Context, _ *Runtime) error {
		return context.Canceled
	})
	assert.Zero(t, code)

	code = rt.run(context.Background(), func(ctx context.Context, _ *Runtime) error {
		return errors.New("consumer crashed")
	})
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "consumer crashed")
}

func TestRunTagsContextWithServiceKind(t *testing.T) {
	var buf bytes.Buffer
	rt := testRuntime(&buf)

	code := rt.run(context.Background(), func(ctx context.Context, rt *Runtime) error {
		rt.Logger.Info(ctx, "inside")
		return nil
	})
	require.Zero(t, code)
	assert.Contains(t, buf.String(), `"serviceKind":"test"`)
}
