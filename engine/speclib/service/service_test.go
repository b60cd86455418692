package service

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/specmatch/engine/speclib"
	"github.com/compozy/specmatch/engine/speclib/ingest"
	"github.com/compozy/specmatch/engine/speclib/uc"
	appconfig "github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
)

const voltageSpec = `Section 4.2.3 Voltage Drop. Feeder and branch circuit voltage drop shall not exceed 3% at the farthest outlet.`

func testConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	cfg := appconfig.Default()
	cfg.Library.DataDir = t.TempDir()
	cfg.Embedder.Dimension = 64
	cfg.Embedder.Model = "hash-64"
	return cfg
}

func upload(t *testing.T, svc *Service) *uc.UploadOutput {
	t.Helper()
	out, err := svc.Upload().Execute(t.Context(), &uc.UploadInput{
		Files: []ingest.File{{Name: "electrical.txt", Data: []byte(voltageSpec)}},
	})
	require.NoError(t, err)
	return out
}

func TestNew(t *testing.T) {
	t.Run("Should persist the library across restarts", func(t *testing.T) {
		cfg := testConfig(t)
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		out := upload(t, svc)
		assert.Positive(t, out.ChunksLearned)
		require.NoError(t, svc.Close(t.Context()))

		_, err = os.Stat(cfg.Library.CatalogFile())
		require.NoError(t, err)
		_, err = os.Stat(cfg.SnapshotFile())
		require.NoError(t, err)

		reopened, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		defer reopened.Close(t.Context())
		summary, err := reopened.Status().Execute(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Documents)
		assert.Equal(t, out.ChunksLearned, summary.Chunks)

		result, err := reopened.Analyze().Execute(t.Context(), &uc.AnalyzeInput{
			Infractions: []string{"feeder voltage drop exceeds 3% at the farthest outlet"},
		})
		require.NoError(t, err)
		require.Len(t, result.Results, 1)
		assert.NotEmpty(t, result.Results[0].Matches)
	})

	t.Run("Should keep an in-memory index ephemeral", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Vector.Provider = "memory"
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		upload(t, svc)
		require.NoError(t, svc.Close(t.Context()))
		_, err = os.Stat(cfg.Library.CatalogFile())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Should refuse a second owner of the data directory", func(t *testing.T) {
		cfg := testConfig(t)
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		defer svc.Close(t.Context())
		_, err = New(t.Context(), cfg, Options{})
		assert.ErrorIs(t, err, speclib.ErrLibraryLocked)
	})

	t.Run("Should reject an index built for another dimension", func(t *testing.T) {
		cfg := testConfig(t)
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		upload(t, svc)
		require.NoError(t, svc.Close(t.Context()))

		cfg.Embedder.Dimension = 32
		_, err = New(t.Context(), cfg, Options{})
		assert.ErrorIs(t, err, speclib.ErrDimensionMismatch)
		// the failed attempt must have released the lock
		cfg.Embedder.Dimension = 64
		again, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		assert.NoError(t, again.Close(t.Context()))
	})

	t.Run("Should cache embeddings in redis", func(t *testing.T) {
		server := miniredis.RunT(t)
		cfg := testConfig(t)
		cfg.Redis.Addr = server.Addr()
		cfg.Embedder.Cache.Backend = "redis"
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		defer svc.Close(t.Context())
		require.NotNil(t, svc.RedisClient())
		upload(t, svc)
		keys := server.Keys()
		assert.NotEmpty(t, keys)
		assert.NoError(t, svc.HealthCheck(t.Context()))
	})

	t.Run("Should require redis for the redis cache", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedder.Cache.Backend = "redis"
		_, err := New(t.Context(), cfg, Options{})
		assert.Error(t, err)
	})

	t.Run("Should honor an explicit catalog path", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Library.CatalogPath = filepath.Join(t.TempDir(), "custom.db")
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		require.NoError(t, svc.Close(t.Context()))
		_, err = os.Stat(cfg.Library.CatalogPath)
		assert.NoError(t, err)
	})

	t.Run("Should warn that the hash embedder is lexical only", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewLogger(&logger.Config{Level: logger.WarnLevel, Output: &buf, TimeFormat: "15:04:05"})
		ctx := logger.ContextWithLogger(t.Context(), log)
		svc, err := New(ctx, testConfig(t), Options{})
		require.NoError(t, err)
		require.NoError(t, svc.Close(t.Context()))
		assert.Contains(t, buf.String(), "Hash embedder matches shared words only")
		assert.Contains(t, buf.String(), "hash-64")
	})
}

func TestService_ApplyConfig(t *testing.T) {
	t.Run("Should swap the scorer policy and reject invalid ones", func(t *testing.T) {
		cfg := testConfig(t)
		svc, err := New(t.Context(), cfg, Options{})
		require.NoError(t, err)
		defer svc.Close(t.Context())

		next := testConfig(t)
		next.Scorer.HighThreshold = 0.8
		require.NoError(t, svc.ApplyConfig(t.Context(), next))
		assert.InDelta(t, 0.8, svc.Scorer().Policy().HighThreshold, 1e-9)

		bad := testConfig(t)
		bad.Scorer.HighThreshold = 0.1
		assert.Error(t, svc.ApplyConfig(t.Context(), bad))
		assert.InDelta(t, 0.8, svc.Scorer().Policy().HighThreshold, 1e-9)
	})

	t.Run("Should close only once", func(t *testing.T) {
		svc, err := New(t.Context(), testConfig(t), Options{})
		require.NoError(t, err)
		assert.NoError(t, svc.Close(t.Context()))
		assert.NoError(t, svc.Close(t.Context()))
	})
}
