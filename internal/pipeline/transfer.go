package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/gridwise/streetquality/internal/adapter"
	"github.com/gridwise/streetquality/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TransferOptions describe applying an existing model to a new region.
type TransferOptions struct {
	ModelPath     string
	Region        string
	Source        string
	AdapterType   string
	AdapterConfig json.RawMessage
	NetworkType   string
	Threshold     float64
	OutputDir     string
}

// TransferResult carries the scored edges and where they were written.
type TransferResult struct {
	Table       *model.EdgeTable
	Predictions []Prediction
	OutputPath  string
}

// Transfer loads a trained model and applies it to a region it was not
// trained on: resolve an adapter for the source, extract the canonical
// edges, score them, and export the predicted-quality subset.
func Transfer(ctx context.Context, reg *adapter.Registry, opts TransferOptions) (*TransferResult, error) {
	bundle, err := LoadModel(opts.ModelPath)
	if err != nil {
		return nil, err
	}

	source := opts.Source
	if source == "" {
		source = opts.Region
	}
	if source == "" {
		return nil, eris.New("pipeline: transfer needs a region or source")
	}

	zap.L().Info("transferring model",
		zap.String("component", "pipeline"),
		zap.String("trained_on", bundle.Metadata.Region),
		zap.String("target", source),
	)

	rawCfg, err := injectNetworkType(opts.AdapterConfig, opts.AdapterType, source, opts.NetworkType)
	if err != nil {
		return nil, err
	}

	table, err := ExtractFromSource(ctx, reg, source, opts.AdapterType, rawCfg)
	if err != nil {
		return nil, err
	}

	preds, err := Apply(bundle, table, opts.Threshold)
	if err != nil {
		return nil, err
	}

	region := opts.Region
	if region == "" {
		region = source
	}
	outputPath := filepath.Join(opts.OutputDir, PredictionFilename(region))
	if err := ExportPredictions(table, preds, outputPath); err != nil {
		return nil, err
	}

	return &TransferResult{Table: table, Predictions: preds, OutputPath: outputPath}, nil
}

// ExtractFromSource resolves an adapter and runs the load/extract pair.
func ExtractFromSource(ctx context.Context, reg *adapter.Registry, source, adapterType string, rawCfg json.RawMessage) (*model.EdgeTable, error) {
	a, name, err := reg.Resolve(source, adapterType, rawCfg)
	if err != nil {
		return nil, err
	}
	zap.L().Info("resolved adapter",
		zap.String("component", "pipeline"),
		zap.String("adapter", name),
		zap.String("source", source),
	)
	return adapter.Process(ctx, a, source)
}

// injectNetworkType folds a network-type override into the adapter config
// when the target looks like an OSM source. Other adapters reject unknown
// keys, so the override is dropped for them.
func injectNetworkType(raw json.RawMessage, adapterType, source, networkType string) (json.RawMessage, error) {
	if networkType == "" {
		return raw, nil
	}
	if adapterType != "" && adapterType != "osm" {
		return raw, nil
	}
	if adapterType == "" && !looksLikeOSMSource(source) {
		return raw, nil
	}

	cfg := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, eris.Wrap(err, "pipeline: parse adapter config")
		}
	}
	if _, ok := cfg["network_type"]; !ok {
		cfg["network_type"] = networkType
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: encode adapter config")
	}
	return out, nil
}

func looksLikeOSMSource(source string) bool {
	s := strings.ToLower(source)
	if strings.HasSuffix(s, ".osm") || strings.HasSuffix(s, ".pbf") {
		return true
	}
	if strings.Contains(s, "://") {
		return false
	}
	// A bare name with no file extension reads as a place query.
	return filepath.Ext(s) == ""
}
