package database

import (
	"fmt"
	"time"
)

// Computation is one entry of the indicator computation log.
type Computation struct {
	ID        int64         `json:"id"`
	Indicator string        `json:"indicator"`
	Dataset   string        `json:"dataset,omitempty"`
	Params    string        `json:"params"`
	Length    int           `json:"length"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RecordComputation appends an entry to the computation log.
func (db *DB) RecordComputation(c *Computation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Params == "" {
		c.Params = "{}"
	}

	res, err := db.conn.Exec(
		`INSERT INTO computations (indicator, dataset, params, length, duration_us, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Indicator, c.Dataset, c.Params, c.Length, c.Duration.Microseconds(), c.Status, c.Error, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record computation: %w", err)
	}

	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get computation id: %w", err)
	}
	return nil
}

// ListComputations returns the most recent log entries, newest first. An
// empty indicator matches all entries.
func (db *DB) ListComputations(indicator string, limit int) ([]Computation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, indicator, dataset, params, length, duration_us, status, error, created_at FROM computations`
	args := []interface{}{}
	if indicator != "" {
		query += ` WHERE indicator = ?`
		args = append(args, indicator)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query computations: %w", err)
	}
	defer rows.Close()

	computations := []Computation{}
	for rows.Next() {
		var c Computation
		var us int64
		if err := rows.Scan(&c.ID, &c.Indicator, &c.Dataset, &c.Params, &c.Length, &us, &c.Status, &c.Error, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan computation: %w", err)
		}
		c.Duration = time.Duration(us) * time.Microsecond
		computations = append(computations, c)
	}
	return computations, rows.Err()
}
