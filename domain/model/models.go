package model

import "time"

// FileChangeEvent is the higher-level change notification pushed to the UI
// when a watched directory reports a raw filesystem event.
type FileChangeEvent struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	EventType string    `json:"eventType"` // "created", "modified", "deleted"
	Timestamp time.Time `json:"timestamp"`
}

// FileMetadata describes a file or directory inside the workspace.
type FileMetadata struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	IsDirectory bool      `json:"isDirectory"`
}

// WatcherStats is a read-only projection of one registry entry for UI display.
// Uptime is computed at call time, not stored.
type WatcherStats struct {
	Path       string        `json:"path"`
	CreatedAt  time.Time     `json:"createdAt"`
	EventCount uint64        `json:"eventCount"`
	Uptime     time.Duration `json:"uptimeNanos"`
}

// WorkspaceConfig is the persisted workspace state, stored as JSON in the
// user's config directory (never inside the workspace itself).
type WorkspaceConfig struct {
	WorkspacePath string    `json:"workspace_path"`
	RecentFiles   []string  `json:"recent_files"`
	LastOpened    string    `json:"last_opened,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MaxRecentFiles bounds the recent-files list in WorkspaceConfig.
const MaxRecentFiles = 20
