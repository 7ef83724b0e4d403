package pipeline

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrModelNotFound indicates a model file does not exist at the given path.
var ErrModelNotFound = eris.New("pipeline: model file not found")

// Metadata travels with a saved model so later applications know which
// features it expects and where it was trained.
type Metadata struct {
	Features     []string
	Region       string
	CreationDate string
}

// Bundle is the on-disk unit: the model plus its metadata.
type Bundle struct {
	Model    *Model
	Metadata Metadata
}

// ModelInfo describes one discovered model file.
type ModelInfo struct {
	Filename     string
	Path         string
	Region       string
	Features     []string
	CreationDate string
}

// SanitizeRegion turns a region name into a filename fragment:
// "Portland, Oregon" becomes "Portland_Oregon".
func SanitizeRegion(region string) string {
	s := strings.ReplaceAll(region, ", ", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// ModelFilename is the canonical model file name for a region.
func ModelFilename(region string) string {
	return "street_quality_" + SanitizeRegion(region) + ".gob"
}

// SaveModel writes the model to dir under the canonical name and returns
// the full path. The file is encoded in memory and written in one shot.
func SaveModel(m *Model, region, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "pipeline: create model directory %s", dir)
	}

	bundle := Bundle{
		Model: m,
		Metadata: Metadata{
			Features:     append([]string(nil), m.Features...),
			Region:       region,
			CreationDate: time.Now().UTC().Format(time.RFC3339),
		},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&bundle); err != nil {
		return "", eris.Wrap(err, "pipeline: encode model bundle")
	}

	path := filepath.Join(dir, ModelFilename(region))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", eris.Wrapf(err, "pipeline: write model %s", path)
	}

	zap.L().Info("model saved",
		zap.String("component", "pipeline"),
		zap.String("path", path),
		zap.String("region", region),
	)
	return path, nil
}

// LoadModel reads and decodes a model bundle.
func LoadModel(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrModelNotFound, "pipeline: %s", path)
		}
		return nil, eris.Wrapf(err, "pipeline: read model %s", path)
	}

	var bundle Bundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&bundle); err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode model %s", path)
	}
	if bundle.Model == nil {
		return nil, eris.Errorf("pipeline: %s holds no model", path)
	}
	return &bundle, nil
}

// DiscoverModels lists the readable model bundles under dir. A missing
// directory yields an empty list; unreadable files are skipped with a
// warning.
func DiscoverModels(dir string) ([]ModelInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "pipeline: read model directory %s", dir)
	}

	var infos []ModelInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gob") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		bundle, err := LoadModel(path)
		if err != nil {
			zap.L().Warn("skipping unreadable model file",
				zap.String("component", "pipeline"),
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		infos = append(infos, ModelInfo{
			Filename:     entry.Name(),
			Path:         path,
			Region:       bundle.Metadata.Region,
			Features:     bundle.Metadata.Features,
			CreationDate: bundle.Metadata.CreationDate,
		})
	}
	return infos, nil
}
