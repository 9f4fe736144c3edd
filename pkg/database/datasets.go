package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Candle is one OHLCV bar of a stored dataset.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Dataset is a named price series, oldest bar first.
type Dataset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Candles   []Candle  `json:"candles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DatasetSummary describes a dataset without its bars.
type DatasetSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Bars      int       `json:"bars"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Series splits the bars into high, low, close and volume columns.
func (d *Dataset) Series() (high, low, close, volume []float64) {
	high = make([]float64, len(d.Candles))
	low = make([]float64, len(d.Candles))
	close = make([]float64, len(d.Candles))
	volume = make([]float64, len(d.Candles))
	for i, c := range d.Candles {
		high[i] = c.High
		low[i] = c.Low
		close[i] = c.Close
		volume[i] = c.Volume
	}
	return high, low, close, volume
}

// SaveDataset stores a dataset under its name, replacing any bars already
// saved under that name.
func (db *DB) SaveDataset(ds *Dataset) error {
	if ds.Name == "" {
		return fmt.Errorf("dataset name is required")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRow(`SELECT id FROM datasets WHERE name = ?`, ds.Name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.Exec(
			`INSERT INTO datasets (name, source, symbol, interval, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			ds.Name, ds.Source, ds.Symbol, ds.Interval, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get dataset id: %w", err)
		}
		ds.CreatedAt = now
	case err != nil:
		return fmt.Errorf("failed to look up dataset: %w", err)
	default:
		_, err = tx.Exec(
			`UPDATE datasets SET source = ?, symbol = ?, interval = ?, updated_at = ? WHERE id = ?`,
			ds.Source, ds.Symbol, ds.Interval, now, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update dataset: %w", err)
		}
		if _, err = tx.Exec(`DELETE FROM candles WHERE dataset_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear candles: %w", err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO candles (dataset_id, idx, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range ds.Candles {
		if _, err := stmt.Exec(id, i, c.Timestamp.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("failed to insert candle %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	ds.ID = id
	ds.UpdatedAt = now
	return nil
}

// GetDataset loads a dataset and all of its bars.
func (db *DB) GetDataset(name string) (*Dataset, error) {
	ds := &Dataset{}
	err := db.conn.QueryRow(
		`SELECT id, name, source, symbol, interval, created_at, updated_at FROM datasets WHERE name = ?`, name,
	).Scan(&ds.ID, &ds.Name, &ds.Source, &ds.Symbol, &ds.Interval, &ds.CreatedAt, &ds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT ts, open, high, low, close, volume FROM candles WHERE dataset_id = ? ORDER BY idx`, ds.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Candle
		var ts int64
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		ds.Candles = append(ds.Candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candles: %w", err)
	}

	return ds, nil
}

// ListDatasets returns every dataset ordered by name.
func (db *DB) ListDatasets() ([]DatasetSummary, error) {
	rows, err := db.conn.Query(`
		SELECT d.id, d.name, d.source, d.symbol, d.interval, d.updated_at,
			(SELECT COUNT(*) FROM candles c WHERE c.dataset_id = d.id)
		FROM datasets d
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := []DatasetSummary{}
	for rows.Next() {
		var s DatasetSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Source, &s.Symbol, &s.Interval, &s.UpdatedAt, &s.Bars); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, s)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset and its bars.
func (db *DB) DeleteDataset(name string) error {
	res, err := db.conn.Exec(`DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dataset %q: %w", name, ErrNotFound)
	}
	return nil
}
