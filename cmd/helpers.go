package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridwise/streetquality/internal/adapter"
	"github.com/gridwise/streetquality/internal/model"
	"github.com/gridwise/streetquality/internal/pipeline"
	"github.com/gridwise/streetquality/internal/store"
)

// adapterConfigJSON resolves the raw adapter config for a command: the
// --config-json flag wins, otherwise the matching section of the config
// file is re-encoded.
func adapterConfigJSON(cmd *cobra.Command, adapterName string) (json.RawMessage, error) {
	if flagJSON, _ := cmd.Flags().GetString("config-json"); flagJSON != "" {
		return json.RawMessage(flagJSON), nil
	}
	section := cfg.AdapterSection(adapterName)
	if section == nil {
		return nil, nil
	}
	raw, err := json.Marshal(section)
	if err != nil {
		return nil, eris.Wrapf(err, "encode %s adapter config", adapterName)
	}
	return raw, nil
}

// runRecorder writes one row of run history. A nil recorder no-ops, so
// commands work unchanged when the store is disabled or unavailable.
type runRecorder struct {
	st      store.Store
	run     *store.Run
	started time.Time
}

// startRun opens the run store and records a running entry. Store
// problems are logged, never fatal.
func startRun(ctx context.Context, command, region, source, adapterName string) *runRecorder {
	if cfg.Store.Disable {
		return nil
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("run history migrate failed", zap.Error(err))
		st.Close()
		return nil
	}
	run, err := st.CreateRun(ctx, command, region, source, adapterName)
	if err != nil {
		zap.L().Warn("run history insert failed", zap.Error(err))
		st.Close()
		return nil
	}
	return &runRecorder{st: st, run: run, started: time.Now()}
}

// finish closes out the run as complete or failed.
func (r *runRecorder) finish(ctx context.Context, summary *store.RunSummary, runErr error) {
	if r == nil {
		return
	}
	defer r.st.Close()

	if runErr != nil {
		if err := r.st.FailRun(ctx, r.run.ID, runErr); err != nil {
			zap.L().Warn("run history update failed", zap.Error(err))
		}
		return
	}
	if summary == nil {
		summary = &store.RunSummary{}
	}
	summary.DurationSeconds = time.Since(r.started).Seconds()
	if err := r.st.CompleteRun(ctx, r.run.ID, summary); err != nil {
		zap.L().Warn("run history update failed", zap.Error(err))
	}
}

// newRegistryExtract runs the resolve/load/extract sequence against a
// fresh default registry.
func newRegistryExtract(ctx context.Context, source, adapterType string, raw json.RawMessage) (*model.EdgeTable, error) {
	reg := adapter.NewDefaultRegistry()
	return pipeline.ExtractFromSource(ctx, reg, source, adapterType, raw)
}

// initStore opens the run history database for the runs subcommands.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
