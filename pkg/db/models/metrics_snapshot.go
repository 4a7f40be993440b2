package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MetricsSnapshot caches aggregator output for one (project, range, day).
// Disposable: never a source of truth, always reproducible from the ledger.
type MetricsSnapshot struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID    uuid.UUID       `gorm:"column:project_id;type:uuid;not null;uniqueIndex:ux_metrics_snapshot_key"`
	DateRangeKey string          `gorm:"column:date_range_key;type:text;not null;uniqueIndex:ux_metrics_snapshot_key"`
	CacheDay     time.Time       `gorm:"column:cache_day;type:date;not null;uniqueIndex:ux_metrics_snapshot_key"`
	Metrics      json.RawMessage `gorm:"column:metrics;type:jsonb;not null"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
