package pipeline

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gridwise/streetquality/internal/model"
	"github.com/gridwise/streetquality/internal/scoring"
	"github.com/rotisserie/eris"
)

// exportColumns is the fixed column order of exported tables. Geometry is
// written as WKT.
var exportColumns = []model.Column{
	model.ColU, model.ColV, model.ColKey,
	model.ColHighway, model.ColName, model.ColWidth, model.ColLanes,
	model.ColMaxspeed, model.ColLength, model.ColService, model.ColOneway,
	model.ColAccess, model.ColBridge, model.ColTunnel,
	model.ColGeometry,
}

// ExportEdges writes the canonical edge table without annotations.
func ExportEdges(t *model.EdgeTable, path string) error {
	records := make([][]string, 0, t.Len())
	for i := range t.Edges {
		records = append(records, edgeRecord(t, &t.Edges[i]))
	}
	return writeCSV(path, columnNames(t), records)
}

// ExportScored writes every edge with its rule score and quality flag.
func ExportScored(t *model.EdgeTable, labels []scoring.Label, path string) error {
	if len(labels) != t.Len() {
		return eris.Errorf("pipeline: %d labels for %d edges", len(labels), t.Len())
	}

	header := append(columnNames(t), "score", "is_quality")
	records := make([][]string, 0, t.Len())
	for i := range t.Edges {
		rec := edgeRecord(t, &t.Edges[i])
		rec = append(rec, formatFloat(labels[i].Score), boolYN(labels[i].IsQuality))
		records = append(records, rec)
	}
	return writeCSV(path, header, records)
}

// ExportPredictions writes the edges predicted quality, with their
// probabilities. Matching the scoring exports, non-quality edges are
// omitted.
func ExportPredictions(t *model.EdgeTable, preds []Prediction, path string) error {
	if len(preds) != t.Len() {
		return eris.Errorf("pipeline: %d predictions for %d edges", len(preds), t.Len())
	}

	header := append(columnNames(t), "quality_probability", "predicted_quality")
	var records [][]string
	for i := range t.Edges {
		if preds[i].Predicted != 1 {
			continue
		}
		rec := edgeRecord(t, &t.Edges[i])
		rec = append(rec, formatFloat(preds[i].Probability), "1")
		records = append(records, rec)
	}
	return writeCSV(path, header, records)
}

// PredictionFilename is the canonical prediction export name for a region.
func PredictionFilename(region string) string {
	return "predicted_quality_" + SanitizeRegion(region) + ".csv"
}

func columnNames(t *model.EdgeTable) []string {
	var names []string
	for _, c := range exportColumns {
		if t.Has(c) {
			names = append(names, string(c))
		}
	}
	return names
}

func edgeRecord(t *model.EdgeTable, e *model.Edge) []string {
	var rec []string
	for _, c := range exportColumns {
		if !t.Has(c) {
			continue
		}
		switch c {
		case model.ColU:
			rec = append(rec, strconv.FormatInt(e.U, 10))
		case model.ColV:
			rec = append(rec, strconv.FormatInt(e.V, 10))
		case model.ColKey:
			rec = append(rec, strconv.Itoa(e.Key))
		case model.ColGeometry:
			wkt, err := model.ToWKT(e.Geometry)
			if err != nil {
				wkt = ""
			}
			rec = append(rec, wkt)
		default:
			if v := e.NumericValue(c); v != nil {
				rec = append(rec, formatFloat(*v))
			} else if s := e.StringValue(c); s != nil {
				rec = append(rec, *s)
			} else {
				rec = append(rec, "")
			}
		}
	}
	return rec
}

// writeCSV renders the table in memory and writes the file in one call.
func writeCSV(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create output directory %s", dir)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "pipeline: write csv header")
	}
	if err := w.WriteAll(records); err != nil {
		return eris.Wrap(err, "pipeline: write csv records")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush csv")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write %s", path)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func boolYN(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
