package domain

import "time"

// Snapshot is a point-in-time copy of an open session, used for inspection
// and persistence. It never holds SDK handles.
type Snapshot struct {
	ContainerID string           `json:"container_id"`
	SessionID   string           `json:"session_id"`
	TrackingID  string           `json:"tracking_id,omitempty"`
	LogLevel    LogLevel         `json:"log_level"`
	Values      map[string]Value `json:"values"`
	DataLayer   []Entry          `json:"data_layer"`
	OpenedAt    time.Time        `json:"opened_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
