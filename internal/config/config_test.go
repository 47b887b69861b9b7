package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.EqualValues(t, 512, d.DescSize)
	assert.EqualValues(t, 90, d.Percentile)
	assert.EqualValues(t, 100, d.NearestCount)
	assert.NotZero(t, d.CountProc, "CountProc should default to a positive value")
}

func TestMergeFileFillsUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "split: /data/corpus\ndesc_size: 256\ndo_extract: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg := Default()
	require.NoError(t, MergeFile(path, &cfg, map[string]bool{}))
	assert.Equal(t, "/data/corpus", cfg.Split)
	assert.EqualValues(t, 256, cfg.DescSize, "file should override default")
	assert.True(t, cfg.DoExtract)
}

func TestMergeFileNeverOverridesExplicitFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("desc_size: 256\n"), 0o644))

	cfg := Default()
	cfg.DescSize = 1024 // the user passed --desc_size=1024 explicitly
	require.NoError(t, MergeFile(path, &cfg, map[string]bool{"desc_size": true}))
	assert.EqualValues(t, 1024, cfg.DescSize, "explicit flag must win over file")
}

func TestValidateNearestCount(t *testing.T) {
	cfg := Default()
	cfg.NearestCount = 20
	assert.Error(t, cfg.Validate(), "nearest_count must strictly exceed 20")

	cfg.NearestCount = 21
	assert.NoError(t, cfg.Validate())
}

func TestMergeFileMissingFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, MergeFile("/nonexistent/config.yaml", &cfg, nil))
}
