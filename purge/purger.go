package purge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"CFPurge/cfclient"
	"CFPurge/config"
	"CFPurge/metrics"
	"CFPurge/notify"
	"CFPurge/zone"
)

// ZoneResolver provides the zone id of the site being purged.
type ZoneResolver interface {
	ResolveCurrent(ctx context.Context) (zone.Resolution, error)
}

type PurgerConfig struct {
	Client      cfclient.Client
	Zones       ZoneResolver
	Expander    *Expander
	Sink        notify.Sink
	Metrics     metrics.Recorder
	Logger      *zap.Logger
	BatchSize   int
	Concurrency int
}

// Purger runs purge operations. Cloudflare allows 1,200 API requests per five minutes;
// Purger does not throttle, so very large purges can hit that ceiling.
type Purger struct {
	client      cfclient.Client
	zones       ZoneResolver
	expander    *Expander
	sink        notify.Sink
	metrics     metrics.Recorder
	logger      *zap.Logger
	batchSize   int
	concurrency int
}

func NewPurger(cfg PurgerConfig) (*Purger, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: cloudflare client is required", cfclient.ErrConfiguration)
	}
	if cfg.Zones == nil {
		return nil, fmt.Errorf("%w: zone resolver is required", cfclient.ErrConfiguration)
	}
	if cfg.Expander == nil {
		return nil, fmt.Errorf("%w: expander is required", cfclient.ErrConfiguration)
	}

	p := &Purger{
		client:      cfg.Client,
		zones:       cfg.Zones,
		expander:    cfg.Expander,
		sink:        cfg.Sink,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
	if p.sink == nil {
		p.sink = notify.Noop{}
	}
	if p.metrics == nil {
		p.metrics = metrics.Noop{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.batchSize <= 0 {
		p.batchSize = config.DefaultBatchSize
	}
	if p.batchSize > config.MaxBatchSize {
		p.logger.Warn("Batch size above the Cloudflare limit, clamping",
			zap.Int("batch_size", p.batchSize),
			zap.Int("max", config.MaxBatchSize))
		p.batchSize = config.MaxBatchSize
	}
	if p.concurrency <= 0 {
		p.concurrency = config.DefaultConcurrency
	}
	return p, nil
}

// Purge expands targets, resolves the zone and sends the URLs in batches of at most BatchSize.
// Any All target turns the call into a single purge-everything request.
// successTemplate may use {file_count} and {files}; empty selects the default.
// The final message is always forwarded to the notification sink.
func (p *Purger) Purge(ctx context.Context, targets []Target, successTemplate string) Result {
	opID := uuid.NewString()
	kind := kindLabel(targets)
	log := p.logger.With(zap.String("operation_id", opID), zap.String("kind", kind))

	var res Result
	if hasAll(targets) {
		res = p.purgeEverything(ctx, log, successTemplate)
	} else {
		res = p.purgeFiles(ctx, log, targets, successTemplate)
	}
	res.OperationID = opID

	outcome := metrics.OutcomeSuccess
	if !res.Success {
		outcome = metrics.OutcomeFailure
	}
	p.metrics.RecordPurge(kind, outcome)

	if res.Success {
		log.Info("Purge completed", zap.Int("files", len(res.Files)), zap.Int("batches", len(res.Batches)))
	} else {
		log.Warn("Purge failed", zap.String("message", res.Message), zap.Error(res.Err))
	}
	return res
}

func (p *Purger) purgeEverything(ctx context.Context, log *zap.Logger, successTemplate string) Result {
	zoneID, failure := p.resolveZone(ctx, log)
	if failure != nil {
		return *failure
	}

	batch := p.send(ctx, zoneID, 0, cloudflare.PurgeCacheRequest{Everything: true}, nil)
	out := Result{
		Success: batch.Success,
		Raw:     batch.Raw,
		Batches: []BatchResult{batch},
		Err:     batch.Err,
	}
	if !batch.Success {
		out.Message = batch.Message
		p.notify(ctx, log, out.Message, notify.SeverityError)
		return out
	}

	out.Message = AllSuccessMessage
	if successTemplate != "" {
		out.Message = strings.NewReplacer("{file_count}", "all", "{files}", "all files").Replace(successTemplate)
	}
	p.notify(ctx, log, out.Message, notify.SeverityGood)
	return out
}

func (p *Purger) purgeFiles(ctx context.Context, log *zap.Logger, targets []Target, successTemplate string) Result {
	var urls []string
	for _, t := range targets {
		expanded, err := p.expander.Expand(ctx, t)
		if err != nil {
			message := fmt.Sprintf("Unable to collect files to purge: %v", err)
			p.notify(ctx, log, message, notify.SeverityError)
			return Result{Message: message, Err: err}
		}
		urls = append(urls, expanded...)
	}
	urls = dedupe(urls)

	if len(urls) == 0 {
		p.notify(ctx, log, NoFilesMessage, notify.SeverityError)
		return Result{Message: NoFilesMessage}
	}

	zoneID, failure := p.resolveZone(ctx, log)
	if failure != nil {
		failure.Files = urls
		return *failure
	}

	batches := p.sendBatches(ctx, log, zoneID, chunk(urls, p.batchSize))
	out := Result{Files: urls, Batches: batches, Success: true}
	for _, b := range batches {
		if b.Success {
			out.Raw = b.Raw
			continue
		}
		out.Success = false
		if b.Skipped {
			continue
		}
		out.Message = b.Message
		out.Raw = b.Raw
		out.Err = b.Err
		break
	}

	if !out.Success {
		if out.Err == nil {
			out.Err = ctx.Err()
			out.Message = fmt.Sprintf("Purge interrupted: %v", out.Err)
		}
		log.Warn("Purge stopped",
			zap.Int("sent_batches", sentCount(batches)),
			zap.Int("total_batches", len(batches)))
		p.notify(ctx, log, out.Message, notify.SeverityError)
		return out
	}

	p.metrics.RecordPurgedFiles(len(urls))
	out.Message = RenderMessage(successTemplate, urls)
	p.notify(ctx, log, out.Message, notify.SeverityGood)
	return out
}

// resolveZone returns the zone id, or the failed Result. Errors returned by the resolver
// have already been reported to the sink by it.
func (p *Purger) resolveZone(ctx context.Context, log *zap.Logger) (string, *Result) {
	resolution, err := p.zones.ResolveCurrent(ctx)
	if err != nil {
		return "", &Result{Message: fmt.Sprintf("Unable to purge: %v", err), Err: err}
	}
	if !resolution.Ready || resolution.ZoneID == "" {
		err := fmt.Errorf("%w: %s", cfclient.ErrZoneNotFound, resolution.Domain)
		message := fmt.Sprintf("Unable to purge: %v", err)
		p.notify(ctx, log, message, notify.SeverityError)
		return "", &Result{Message: message, Err: err}
	}
	return resolution.ZoneID, nil
}

// sendBatches sends batches with at most p.concurrency in flight. After the first failure
// no further batch is started; those are reported as skipped.
func (p *Purger) sendBatches(ctx context.Context, log *zap.Logger, zoneID string, batches [][]string) []BatchResult {
	results := make([]BatchResult, len(batches))
	for i, b := range batches {
		results[i] = BatchResult{Index: i, URLs: b, Skipped: true}
	}

	var (
		wg        sync.WaitGroup
		aborted   atomic.Bool
		semaphore = make(chan struct{}, p.concurrency)
	)
	for i, batch := range batches {
		semaphore <- struct{}{}
		if aborted.Load() || ctx.Err() != nil {
			<-semaphore
			break
		}

		wg.Add(1)
		go func(i int, batch []string) {
			defer func() {
				<-semaphore
				wg.Done()
			}()
			res := p.send(ctx, zoneID, i, cloudflare.PurgeCacheRequest{Files: batch}, batch)
			results[i] = res
			if !res.Success {
				aborted.Store(true)
			}
		}(i, batch)
	}
	wg.Wait()

	log.Debug("Purge batches finished", zap.Int("batches", len(batches)), zap.Int("sent", sentCount(results)))
	return results
}

func (p *Purger) send(ctx context.Context, zoneID string, index int, req cloudflare.PurgeCacheRequest, urls []string) BatchResult {
	start := time.Now()
	raw, err := p.client.PurgeCache(ctx, zoneID, req)
	duration := time.Since(start)

	out := BatchResult{Index: index, URLs: urls, Raw: raw}
	if err != nil {
		out.Err = err
		out.Message = requestFailureMessage(err)
	} else {
		res := Interpret(raw)
		out.Success = res.Success
		out.Message = res.Message
		out.Err = res.Err
	}

	outcome := metrics.OutcomeSuccess
	if !out.Success {
		outcome = metrics.OutcomeFailure
	}
	p.metrics.RecordPurgeRequest(outcome, duration)
	return out
}

func (p *Purger) notify(ctx context.Context, log *zap.Logger, message string, severity notify.Severity) {
	if err := p.sink.Notify(ctx, message, severity); err != nil {
		log.Warn("Failed to deliver notification", zap.Error(err))
	}
}

func requestFailureMessage(err error) string {
	switch {
	case errors.Is(err, cfclient.ErrConfiguration):
		return fmt.Sprintf("CloudFlare is not configured: %v", err)
	case errors.Is(err, cfclient.ErrTransport):
		return fmt.Sprintf("Unable to reach CloudFlare: %v", err)
	default:
		return err.Error()
	}
}

func hasAll(targets []Target) bool {
	for _, t := range targets {
		if t.kind == KindAll {
			return true
		}
	}
	return false
}

func kindLabel(targets []Target) string {
	switch {
	case hasAll(targets):
		return KindAll.String()
	case len(targets) == 1:
		return targets[0].kind.String()
	case len(targets) == 0:
		return "none"
	default:
		return "mixed"
	}
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func chunk(urls []string, size int) [][]string {
	var batches [][]string
	for size < len(urls) {
		urls, batches = urls[size:], append(batches, urls[:size:size])
	}
	if len(urls) > 0 {
		batches = append(batches, urls)
	}
	return batches
}

func sentCount(batches []BatchResult) int {
	n := 0
	for _, b := range batches {
		if !b.Skipped {
			n++
		}
	}
	return n
}
