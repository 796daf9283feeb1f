package catalog

import (
	"context"
	"fmt"
	"os"
)

// Stats summarizes the catalog contents.
type Stats struct {
	DBPath          string         `json:"db_path"`
	DBSizeBytes     int64          `json:"db_size_bytes"`
	TotalRecordings int            `json:"total_recordings"`
	TotalSeconds    float64        `json:"total_seconds"`
	Modalities      []ModalityStat `json:"modalities,omitempty"`
}

// ModalityStat is the per-modality breakdown.
type ModalityStat struct {
	Modality string  `json:"modality"`
	Count    int     `json:"count"`
	Seconds  float64 `json:"seconds"`
}

// Stats reports totals and a per-modality breakdown.
func (c *Catalog) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	s := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		s.DBSizeBytes = info.Size()
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(end_time - start_time), 0) FROM recordings`)
	if err := row.Scan(&s.TotalRecordings, &s.TotalSeconds); err != nil {
		return nil, fmt.Errorf("catalog: stats: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT modality, COUNT(*), COALESCE(SUM(end_time - start_time), 0)
		 FROM recordings GROUP BY modality ORDER BY modality`)
	if err != nil {
		return nil, fmt.Errorf("catalog: stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m ModalityStat
		if err := rows.Scan(&m.Modality, &m.Count, &m.Seconds); err != nil {
			return nil, err
		}
		s.Modalities = append(s.Modalities, m)
	}
	return s, rows.Err()
}
