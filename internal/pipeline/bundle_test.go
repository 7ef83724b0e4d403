package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRegion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Portland, Oregon", "Portland_Oregon"},
		{"San Luis Obispo", "San_Luis_Obispo"},
		{"berlin", "berlin"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeRegion(tt.in))
	}
}

func TestModelFilename(t *testing.T) {
	assert.Equal(t, "street_quality_Portland_Oregon.gob", ModelFilename("Portland, Oregon"))
}

func TestSaveLoadRoundtrip(t *testing.T) {
	ds := syntheticDataset(20)
	m, _, _, err := Train(ds, TrainOptions{Seed: 7})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := SaveModel(m, "Portland, Oregon", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "street_quality_Portland_Oregon.gob"), path)

	bundle, err := LoadModel(path)
	require.NoError(t, err)
	require.NotNil(t, bundle.Model)

	assert.Equal(t, "Portland, Oregon", bundle.Metadata.Region)
	assert.Equal(t, m.Features, bundle.Metadata.Features)
	_, err = time.Parse(time.RFC3339, bundle.Metadata.CreationDate)
	assert.NoError(t, err)

	// A loaded model predicts the same probabilities as the original, on
	// a row that exercises both categorical and numeric encoding.
	narrow := FeatureRow{
		"highway":  ptrString("residential"),
		"lanes":    ptrFloat64(1),
		"maxspeed": ptrFloat64(20),
		"width":    ptrFloat64(3.5),
		"length":   ptrFloat64(80),
	}
	assert.InDelta(t, m.Probability(narrow), bundle.Model.Probability(narrow), 1e-9)
	assert.Greater(t, bundle.Model.Probability(narrow), 0.5)
}

func TestSaveModelCreatesDir(t *testing.T) {
	ds := syntheticDataset(20)
	m, _, _, err := Train(ds, TrainOptions{Seed: 7})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "nested", "models")
	path, err := SaveModel(m, "berlin", dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestLoadModelMissing(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.gob"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	_, err := LoadModel(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelNotFound)
}

func TestDiscoverModels(t *testing.T) {
	ds := syntheticDataset(20)
	m, _, _, err := Train(ds, TrainOptions{Seed: 7})
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = SaveModel(m, "Portland, Oregon", dir)
	require.NoError(t, err)
	_, err = SaveModel(m, "berlin", dir)
	require.NoError(t, err)

	// Files that are not valid bundles are skipped, not fatal.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.gob"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644))

	infos, err := DiscoverModels(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	regions := []string{infos[0].Region, infos[1].Region}
	assert.ElementsMatch(t, []string{"Portland, Oregon", "berlin"}, regions)
	for _, info := range infos {
		assert.Equal(t, m.Features, info.Features)
		assert.FileExists(t, info.Path)
	}
}

func TestDiscoverModelsMissingDir(t *testing.T) {
	infos, err := DiscoverModels(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, infos)
}
