package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge case tests for scenarios that could cause silent failures or
// unexpected behavior in configuration loading and validation.

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("test requires non-root user")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "ragcore.toml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size = 2000"), 0o000))
	defer func() { _ = os.Chmod(path, 0o644) }()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(dir)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_MalformedTOML_ReturnsParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ragcore.toml"), []byte("chunk_size = ["), 0o644))

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(dir)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate_ChunkOverlapEqualToChunkSize_Rejected(t *testing.T) {
	cfg := Defaults()
	cfg.ChunkSize = 500
	cfg.ChunkOverlap = 500
	assert.Error(t, cfg.Validate())
}

func TestValidate_MultipleViolations_AllReportedAtOnce(t *testing.T) {
	cfg := Defaults()
	cfg.ChunkSize = 500
	cfg.ChunkOverlap = 500
	cfg.HybridAlpha = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
	assert.Contains(t, err.Error(), "hybrid_alpha")
}

func TestValidate_HybridAlphaBoundaryValuesAccepted(t *testing.T) {
	cfg := Defaults()
	cfg.HybridAlpha = 0
	assert.NoError(t, cfg.Validate())
	cfg.HybridAlpha = 1
	assert.NoError(t, cfg.Validate())
}

func TestValidate_HybridAlphaOutOfRange_Rejected(t *testing.T) {
	cfg := Defaults()
	cfg.HybridAlpha = 1.1
	assert.Error(t, cfg.Validate())
	cfg.HybridAlpha = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_QueryExpansionCountZero_Rejected(t *testing.T) {
	cfg := Defaults()
	cfg.QueryExpansionCount = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_ExecutionProviderUnknownValue_Rejected(t *testing.T) {
	cfg := Defaults()
	cfg.ExecutionProviderPreference = ExecutionProviderPreference("vulkan")
	assert.Error(t, cfg.Validate())
}

func TestValidate_DefaultTopKNonPositive_Rejected(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultTopK = 0
	assert.Error(t, cfg.Validate())
	cfg.DefaultTopK = -3
	assert.Error(t, cfg.Validate())
}

func TestMergeFile_MissingFileIsNotAnError(t *testing.T) {
	cfg := Defaults()
	err := mergeFile(cfg, filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.NoError(t, err)
	assert.Equal(t, Defaults().ChunkSize, cfg.ChunkSize)
}

func TestApplyEnvOverrides_BoolParsing(t *testing.T) {
	cfg := Defaults()
	t.Setenv("RAGCORE_ENABLE_RERANKING", "false")
	cfg.applyEnvOverrides()
	assert.False(t, cfg.EnableReranking)
}

func TestApplyEnvOverrides_InvalidIntIgnored(t *testing.T) {
	cfg := Defaults()
	orig := cfg.ChunkSize
	t.Setenv("RAGCORE_CHUNK_SIZE", "not-a-number")
	cfg.applyEnvOverrides()
	assert.Equal(t, orig, cfg.ChunkSize)
}

func TestGetUserConfigPath_FallsBackToHomeDirWithoutXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ragcore", "config.toml"), GetUserConfigPath())
}

func TestUserConfigExists_FalseWhenAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.False(t, UserConfigExists())
}
