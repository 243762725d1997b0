package common

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, 7, cfg.Inventory.ExpiryWindowDays)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_URL", "postgres://u:p@localhost/stock")
	t.Setenv("DB_DIAL_TIMEOUT", "10s")
	t.Setenv("BULK_CONFIRM_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXPIRY_WINDOW_DAYS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Database.DialTimeout)
	assert.Equal(t, 8, cfg.Inventory.BulkConfirmWorkers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 7, cfg.Inventory.ExpiryWindowDays)
}

func TestValidate_Failures(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("LLM_PROVIDER", "openai")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestErrorMapping(t *testing.T) {
	assert.Equal(t, 404, HTTPStatus(NotFound("row", "x")))
	assert.Equal(t, 400, HTTPStatus(InvalidInput("bad")))
	assert.Equal(t, 500, HTTPStatus(Database("put row", errors.New("disk full"))))
	assert.Equal(t, 409, HTTPStatus(Conflict("import file", "abc")))
	assert.True(t, errors.Is(Database("put row", errors.New("disk full")), ErrDatabase))

	_, err := ParseUUID("rowId", "nope")
	require.Error(t, err)
	assert.Equal(t, 400, HTTPStatus(err))
}

func TestGRPCErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{NotFound("row", "x"), codes.NotFound},
		{InvalidInput("bad"), codes.InvalidArgument},
		{Database("put row", errors.New("disk full")), codes.Internal},
		{Conflict("import file", "abc"), codes.AlreadyExists},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(GRPCError(tc.err)), tc.err.Error())
	}
	assert.NoError(t, GRPCError(nil))
}
