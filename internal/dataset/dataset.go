package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/internal/metrics"
	"github.com/arijanluiken/overlap/pkg/database"
	"github.com/arijanluiken/overlap/pkg/exchanges"
)

// DefaultImportLimit is the number of klines fetched when an import does not
// ask for a count.
const DefaultImportLimit = 200

// ErrInvalid marks requests rejected before touching storage.
var ErrInvalid = errors.New("invalid dataset request")

// Messages for dataset actor communication
type (
	SaveDatasetMsg   struct{ Dataset *database.Dataset }
	GetDatasetMsg    struct{ Name string }
	ListDatasetsMsg  struct{}
	DeleteDatasetMsg struct{ Name string }
	StatusMsg        struct{}

	// ImportDatasetMsg backfills klines from an exchange and stores them as
	// a dataset. Name defaults to exchange-symbol-interval.
	ImportDatasetMsg struct {
		Exchange string `json:"exchange"`
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Limit    int    `json:"limit"`
		Name     string `json:"name"`
	}
)

// SourceFactory builds kline sources by exchange name.
type SourceFactory interface {
	Create(exchangeName string) (exchanges.Source, error)
}

// DatasetActor owns stored price series. Every reply is either the requested
// value or an error.
type DatasetActor struct {
	db      *database.DB
	sources SourceFactory
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a new dataset actor
func New(db *database.DB, sources SourceFactory, timeout time.Duration, logger zerolog.Logger) *DatasetActor {
	return &DatasetActor{
		db:      db,
		sources: sources,
		timeout: timeout,
		logger:  logger,
	}
}

// Receive handles incoming messages
func (d *DatasetActor) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		d.logger.Info().Msg("Dataset actor started")
	case actor.Stopped:
		d.logger.Info().Msg("Dataset actor stopped")
	case SaveDatasetMsg:
		d.onSave(ctx, msg)
	case GetDatasetMsg:
		d.onGet(ctx, msg)
	case ListDatasetsMsg:
		d.onList(ctx)
	case DeleteDatasetMsg:
		d.onDelete(ctx, msg)
	case ImportDatasetMsg:
		d.onImport(ctx, msg)
	case StatusMsg:
		d.onStatus(ctx)
	default:
		d.logger.Debug().
			Str("message_type", fmt.Sprintf("%T", msg)).
			Msg("Received message")
	}
}

func (d *DatasetActor) onStatus(ctx *actor.Context) {
	list, err := d.db.ListDatasets()
	if err != nil {
		ctx.Respond(err)
		return
	}
	ctx.Respond(map[string]interface{}{
		"datasets":  len(list),
		"timestamp": time.Now(),
	})
}

func (d *DatasetActor) onSave(ctx *actor.Context, msg SaveDatasetMsg) {
	if err := validate(msg.Dataset); err != nil {
		ctx.Respond(err)
		return
	}

	if err := d.db.SaveDataset(msg.Dataset); err != nil {
		d.logger.Error().Err(err).Str("dataset", msg.Dataset.Name).Msg("Failed to save dataset")
		ctx.Respond(err)
		return
	}

	d.logger.Info().
		Str("dataset", msg.Dataset.Name).
		Int("bars", len(msg.Dataset.Candles)).
		Msg("Dataset stored")
	ctx.Respond(summarize(msg.Dataset))
}

func (d *DatasetActor) onGet(ctx *actor.Context, msg GetDatasetMsg) {
	ds, err := d.db.GetDataset(msg.Name)
	if err != nil {
		ctx.Respond(err)
		return
	}
	ctx.Respond(ds)
}

func (d *DatasetActor) onList(ctx *actor.Context) {
	list, err := d.db.ListDatasets()
	if err != nil {
		ctx.Respond(err)
		return
	}
	ctx.Respond(list)
}

func (d *DatasetActor) onDelete(ctx *actor.Context, msg DeleteDatasetMsg) {
	if err := d.db.DeleteDataset(msg.Name); err != nil {
		ctx.Respond(err)
		return
	}
	d.logger.Info().Str("dataset", msg.Name).Msg("Dataset deleted")
	ctx.Respond(msg.Name)
}

func (d *DatasetActor) onImport(ctx *actor.Context, msg ImportDatasetMsg) {
	ds, err := d.importKlines(msg)
	metrics.ObserveImport(msg.Exchange, err)
	if err != nil {
		d.logger.Error().Err(err).
			Str("exchange", msg.Exchange).
			Str("symbol", msg.Symbol).
			Msg("Dataset import failed")
		ctx.Respond(err)
		return
	}
	ctx.Respond(summarize(ds))
}

func (d *DatasetActor) importKlines(msg ImportDatasetMsg) (*database.Dataset, error) {
	if msg.Exchange == "" || msg.Symbol == "" || msg.Interval == "" {
		return nil, fmt.Errorf("exchange, symbol and interval are required: %w", ErrInvalid)
	}
	if d.sources == nil {
		return nil, errors.New("no exchange sources configured")
	}
	if msg.Limit <= 0 {
		msg.Limit = DefaultImportLimit
	}
	if msg.Name == "" {
		msg.Name = fmt.Sprintf("%s-%s-%s", msg.Exchange, msg.Symbol, msg.Interval)
	}

	source, err := d.sources.Create(msg.Exchange)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	klines, err := source.GetKlines(fetchCtx, msg.Symbol, msg.Interval, msg.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("%s returned no klines for %s %s", msg.Exchange, msg.Symbol, msg.Interval)
	}

	ds := &database.Dataset{
		Name:     msg.Name,
		Source:   source.GetName(),
		Symbol:   msg.Symbol,
		Interval: msg.Interval,
		Candles:  make([]database.Candle, len(klines)),
	}
	for i, k := range klines {
		ds.Candles[i] = database.Candle{
			Timestamp: k.Timestamp,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		}
	}

	if err := d.db.SaveDataset(ds); err != nil {
		return nil, err
	}

	d.logger.Info().
		Str("dataset", ds.Name).
		Str("exchange", msg.Exchange).
		Int("bars", len(ds.Candles)).
		Msg("Dataset imported")
	return ds, nil
}

func validate(ds *database.Dataset) error {
	if ds == nil || ds.Name == "" {
		return fmt.Errorf("dataset name is required: %w", ErrInvalid)
	}
	if len(ds.Candles) == 0 {
		return fmt.Errorf("dataset %s has no bars: %w", ds.Name, ErrInvalid)
	}
	for i := 1; i < len(ds.Candles); i++ {
		if !ds.Candles[i].Timestamp.IsZero() && ds.Candles[i].Timestamp.Before(ds.Candles[i-1].Timestamp) {
			return fmt.Errorf("dataset %s: bar %d is older than bar %d: %w", ds.Name, i, i-1, ErrInvalid)
		}
	}
	return nil
}

func summarize(ds *database.Dataset) database.DatasetSummary {
	return database.DatasetSummary{
		ID:        ds.ID,
		Name:      ds.Name,
		Source:    ds.Source,
		Symbol:    ds.Symbol,
		Interval:  ds.Interval,
		Bars:      len(ds.Candles),
		UpdatedAt: ds.UpdatedAt,
	}
}
