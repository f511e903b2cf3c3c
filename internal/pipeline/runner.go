package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"ccauth/internal/decoder"
	"ccauth/internal/model"
	"ccauth/internal/storage"
)

// RunConfig holds runtime settings for a decode run.
type RunConfig struct {
	Input             string
	Filter            Filter
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// ErrorSink receives reports for logs that produced no decoded event.
type ErrorSink interface {
	PutDecodeErrors(ctx context.Context, records []model.DecodeError) error
}

// Stats counts what a run did with its input lines.
type Stats struct {
	Total      int
	Resumed    int
	Decoded    int
	Skipped    int
	Duplicates int
	Failed     int
}

// Runner streams raw logs from JSONL input through the decoder into sinks.
type Runner struct {
	cfg        RunConfig
	decoder    *decoder.Decoder
	sinks      []storage.Storage
	errors     ErrorSink
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

type pendingLog struct {
	line uint64
	log  model.RawLog
}

// NewRunner builds a Runner with its dependencies. errSink may be nil.
func NewRunner(cfg RunConfig, dec *decoder.Decoder, sinks []storage.Storage, errSink ErrorSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		decoder:    dec,
		sinks:      sinks,
		errors:     errSink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run decodes every line of in. Lines at or before a matching checkpoint are
// skipped. The checkpoint advances only after a batch reached every sink.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Stats, error) {
	var stats Stats
	if r.decoder == nil {
		return stats, fmt.Errorf("decoder is nil")
	}
	if len(r.sinks) == 0 {
		return stats, fmt.Errorf("at least one sink is required")
	}
	if r.cfg.BatchSize <= 0 {
		return stats, fmt.Errorf("batch size must be greater than zero")
	}

	var resumeAfter uint64
	cp, ok, err := r.checkpoint.Load(r.cfg.Input)
	if err != nil {
		return stats, err
	}
	if ok {
		resumeAfter = cp.LastProcessedLine
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed_line", resumeAfter))
	}

	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]pendingLog, 0, r.cfg.BatchSize)
	var failures []model.DecodeError
	var lineNo uint64
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if lineNo <= resumeAfter {
			stats.Resumed++
			continue
		}
		logs, err := parseLine(line)
		if err != nil {
			stats.Total++
			stats.Failed++
			failures = append(failures, model.DecodeError{Line: int(lineNo), Error: err.Error()})
			continue
		}
		for _, log := range logs {
			stats.Total++
			if !r.cfg.Filter.Match(log) {
				stats.Skipped++
				continue
			}
			if r.isDuplicate(log) {
				stats.Duplicates++
				continue
			}
			batch = append(batch, pendingLog{line: lineNo, log: log})
		}

		// Flush on line boundaries so a checkpoint never splits a line.
		if len(batch) < r.cfg.BatchSize {
			continue
		}
		if err := r.flush(ctx, batch, failures, lineNo, &stats); err != nil {
			return stats, err
		}
		batch = batch[:0]
		failures = nil
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	if err := r.flush(ctx, batch, failures, lineNo, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Runner) flush(ctx context.Context, batch []pendingLog, failures []model.DecodeError, lastLine uint64, stats *Stats) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(batch) == 0 && len(failures) == 0 {
		return r.checkpoint.Save(r.cfg.Input, lastLine)
	}

	events := make([]model.DecodedEvent, 0, len(batch))
	for _, pending := range batch {
		event, err := r.decoder.TryDecodeLog(pending.log)
		if err != nil {
			stats.Failed++
			failures = append(failures, model.DecodeErrorFromLog(int(pending.line), pending.log, err.Error()))
			continue
		}
		events = append(events, *event)
	}

	for _, sink := range r.sinks {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			err := sink.PutDecodedEvents(ctx, events)
			if err != nil {
				r.logger.Warn("store decoded events failed", zap.Error(err), zap.Int("events", len(events)))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("store decoded events: %w", err)
		}
	}
	stats.Decoded += len(events)

	if r.errors != nil && len(failures) > 0 {
		if err := r.errors.PutDecodeErrors(ctx, failures); err != nil {
			return fmt.Errorf("store decode errors: %w", err)
		}
	}

	if err := r.checkpoint.Save(r.cfg.Input, lastLine); err != nil {
		return err
	}

	r.logger.Info("batch complete",
		zap.Int("logs", len(batch)),
		zap.Int("decoded", len(events)),
		zap.Int("failed", len(failures)),
		zap.Uint64("last_line", lastLine),
	)
	return nil
}

// parseLine decodes one input line. An object is a single raw log; an array
// is a receipt's logs list in go-ethereum's JSON form.
func parseLine(line []byte) ([]model.RawLog, error) {
	if line[0] != '[' {
		var log model.RawLog
		if err := json.Unmarshal(line, &log); err != nil {
			return nil, err
		}
		return []model.RawLog{log}, nil
	}
	var receiptLogs []*types.Log
	if err := json.Unmarshal(line, &receiptLogs); err != nil {
		return nil, fmt.Errorf("receipt logs: %w", err)
	}
	out := make([]model.RawLog, 0, len(receiptLogs))
	for _, log := range receiptLogs {
		if log == nil {
			continue
		}
		out = append(out, model.RawLogFromTypes(*log))
	}
	return out, nil
}

func (r *Runner) isDuplicate(log model.RawLog) bool {
	if log.TransactionHash == "" {
		return false
	}
	id := fmt.Sprintf("%s:%s:%s", log.BlockHash, log.TransactionHash, log.LogIndex)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
