// Package ingest implements the tabular ingestion and normalization engine.
//
// It turns heterogeneous spreadsheet/CSV exports of organizational
// performance metrics (Korean and English headers, mixed date encodings,
// locale-formatted numbers) into canonical period-keyed records, and folds
// those records into one summary per (period, organizational unit).
//
// The pipeline for one ingestion run is:
//
//	Decode -> Schema.ResolveTable -> Transformer.TransformAll -> Aggregator
//
// Engine.Ingest wires the stages together and applies the error taxonomy:
// decoding and schema failures abort the run, row-level failures are
// collected as diagnostics and never abort it.
//
// The engine is single-threaded and holds no state across runs; callers
// running concurrent ingestions must use one Engine result set each.
package ingest
