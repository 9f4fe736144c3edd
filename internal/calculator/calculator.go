package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/internal/metrics"
	"github.com/arijanluiken/overlap/pkg/database"
)

// Messages for calculator actor communication
type (
	// ComputeMsg runs one request. The reply is *indicator.Result or error.
	ComputeMsg struct {
		Request indicator.Request
	}

	// BatchMsg runs independent requests concurrently. The reply is
	// []*indicator.Result or error.
	BatchMsg struct {
		Requests []indicator.Request
	}

	StatusMsg struct{}

	// Status is the reply to StatusMsg.
	Status struct {
		Worker    string    `json:"worker"`
		Served    int       `json:"served"`
		Failed    int       `json:"failed"`
		StartedAt time.Time `json:"started_at"`
	}
)

// CalculatorActor computes indicators on behalf of the API, resolving stored
// datasets and recording every run.
type CalculatorActor struct {
	name     string
	registry *indicator.Registry
	db       *database.DB
	timeout  time.Duration
	logger   zerolog.Logger

	served    int
	failed    int
	startedAt time.Time
}

// New creates a calculator actor. db may be nil, in which case stored
// datasets are unavailable and runs are not recorded.
func New(name string, registry *indicator.Registry, db *database.DB, timeout time.Duration, logger zerolog.Logger) *CalculatorActor {
	return &CalculatorActor{
		name:     name,
		registry: registry,
		db:       db,
		timeout:  timeout,
		logger:   logger,
	}
}

// Receive handles incoming messages
func (c *CalculatorActor) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		c.startedAt = time.Now()
		c.logger.Info().Str("worker", c.name).Msg("Calculator actor started")
	case actor.Stopped:
		c.logger.Info().Str("worker", c.name).Msg("Calculator actor stopped")
	case ComputeMsg:
		c.onCompute(ctx, msg)
	case BatchMsg:
		c.onBatch(ctx, msg)
	case StatusMsg:
		ctx.Respond(Status{
			Worker:    c.name,
			Served:    c.served,
			Failed:    c.failed,
			StartedAt: c.startedAt,
		})
	default:
		c.logger.Debug().
			Str("message_type", fmt.Sprintf("%T", msg)).
			Msg("Received message")
	}
}

func (c *CalculatorActor) onCompute(ctx *actor.Context, msg ComputeMsg) {
	res, err := c.compute(msg.Request)
	if err != nil {
		ctx.Respond(err)
		return
	}
	ctx.Respond(res)
}

func (c *CalculatorActor) onBatch(ctx *actor.Context, msg BatchMsg) {
	reqs := make([]indicator.Request, len(msg.Requests))
	for i, req := range msg.Requests {
		resolved, err := c.resolveDataset(req)
		if err != nil {
			c.failed++
			ctx.Respond(fmt.Errorf("request %d: %w", i, err))
			return
		}
		reqs[i] = resolved
	}

	runCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	results, err := c.registry.ComputeAll(runCtx, reqs)
	elapsed := time.Since(start)
	if err != nil {
		c.failed++
		c.logger.Warn().Err(err).Int("requests", len(reqs)).Msg("Batch failed")
		ctx.Respond(err)
		return
	}

	for i, res := range results {
		c.served++
		c.record(reqs[i], res, elapsed, nil)
	}
	ctx.Respond(results)
}

// compute runs a request outside of the actor plumbing.
func (c *CalculatorActor) compute(req indicator.Request) (*indicator.Result, error) {
	req, err := c.resolveDataset(req)
	if err != nil {
		c.failed++
		return nil, err
	}

	start := time.Now()
	res, err := c.registry.Compute(req)
	elapsed := time.Since(start)

	c.record(req, res, elapsed, err)
	if err != nil {
		c.failed++
		c.logger.Debug().Err(err).Str("indicator", req.Indicator).Msg("Computation failed")
		return nil, err
	}

	c.served++
	c.logger.Debug().
		Str("indicator", res.Indicator).
		Int("length", res.Length).
		Dur("duration", elapsed).
		Msg("Computation finished")
	return res, nil
}

// resolveDataset loads the bars of a named dataset into requests that carry
// no inline series.
func (c *CalculatorActor) resolveDataset(req indicator.Request) (indicator.Request, error) {
	if req.Dataset == "" || len(req.Close) > 0 || len(req.High) > 0 || len(req.Low) > 0 {
		return req, nil
	}
	if c.db == nil {
		return req, errors.New("stored datasets are not available")
	}

	ds, err := c.db.GetDataset(req.Dataset)
	if err != nil {
		return req, fmt.Errorf("dataset %s: %w", req.Dataset, err)
	}
	req.High, req.Low, req.Close, _ = ds.Series()
	return req, nil
}

func (c *CalculatorActor) record(req indicator.Request, res *indicator.Result, elapsed time.Duration, err error) {
	length := len(req.Close)
	if length == 0 {
		length = len(req.High)
	}
	metrics.ObserveComputation(req.Indicator, length, elapsed, err)

	if c.db == nil {
		return
	}

	params := req.Params
	if res != nil {
		params = res.Params
	}
	encoded, jerr := json.Marshal(params)
	if jerr != nil {
		encoded = []byte("{}")
	}

	entry := &database.Computation{
		Indicator: req.Indicator,
		Dataset:   req.Dataset,
		Params:    string(encoded),
		Length:    length,
		Duration:  elapsed,
		Status:    database.StatusOK,
	}
	if err != nil {
		entry.Status = database.StatusFailed
		entry.Error = err.Error()
	}

	if err := c.db.RecordComputation(entry); err != nil {
		c.logger.Error().Err(err).Str("indicator", req.Indicator).Msg("Failed to record computation")
	}
}
