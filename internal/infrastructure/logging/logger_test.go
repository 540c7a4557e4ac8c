package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerBackends(t *testing.T) {
	for _, backend := range []string{"zap", "zerolog"} {
		t.Run(backend, func(t *testing.T) {
			logger := NewLogger(&LoggerConfig{Logger: backend, Level: "error", Encoding: "json"})
			assert.NotNil(t, logger)

			assert.NotPanics(t, func() {
				logger.Debug(General, Startup, "hidden", map[ExtraKey]any{Queue: "q"})
				logger.Info(RabbitMQ, Publish, "hidden", nil)
			})
		})
	}
}

func TestNewLoggerUnsupported(t *testing.T) {
	assert.Panics(t, func() {
		NewLogger(&LoggerConfig{Logger: "logrus"})
	})
}

func TestWithCategoriesDoesNotMutateInput(t *testing.T) {
	extra := map[ExtraKey]any{Queue: "notifications-queue"}

	params := withCategories(RabbitMQ, Consume, extra)

	assert.Len(t, extra, 1)
	assert.Equal(t, RabbitMQ, params["Category"])
	assert.Equal(t, Consume, params["SubCategory"])
	assert.Equal(t, "notifications-queue", params[Queue])
}

func TestLogParamsToZapParams(t *testing.T) {
	params := logParamsToZapParams(map[ExtraKey]any{UserID: 42})
	assert.Equal(t, []any{"UserId", 42}, params)
}
