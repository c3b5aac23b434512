package model

import (
	"context"
	"time"
)

// ExtractionStatus is the terminal state of one extraction
type ExtractionStatus string

const (
	StatusSuccess ExtractionStatus = "success"
	StatusError   ExtractionStatus = "error"
	StatusCached  ExtractionStatus = "cached"
	StatusTimeout ExtractionStatus = "timeout"
	StatusPartial ExtractionStatus = "partial"
)

// MagnetURIPrefix is the scheme prefix every kept magnet link starts with
const MagnetURIPrefix = "magnet:?"

// CastMember represents one performer credited on a detail page
type CastMember struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// MagnetLink represents a magnet URI offered for an item
type MagnetLink struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	Size     string `json:"size,omitempty"`
	Seeders  int    `json:"seeders,omitempty"`
	Leechers int    `json:"leechers,omitempty"`
}

// DownloadLink represents a direct download offered for an item
type DownloadLink struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// ExtractionRecord is the canonical output of one extraction. Every field is
// always present in the serialized form.
type ExtractionRecord struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Code             string           `json:"code"`
	Cover            string           `json:"cover"`
	Screenshots      []string         `json:"screenshots"`
	Cast             []CastMember     `json:"cast"`
	Director         string           `json:"director"`
	Studio           string           `json:"studio"`
	Label            string           `json:"label"`
	Series           string           `json:"series"`
	ReleaseDate      string           `json:"release_date"`
	DurationMinutes  int              `json:"duration_minutes"`
	Quality          string           `json:"quality"`
	FileSize         string           `json:"file_size"`
	Resolution       string           `json:"resolution"`
	Tags             []string         `json:"tags"`
	MagnetLinks      []MagnetLink     `json:"magnet_links"`
	DownloadLinks    []DownloadLink   `json:"download_links"`
	Description      string           `json:"description"`
	Rating           float64          `json:"rating"`
	SourceID         string           `json:"source_id"`
	OriginURL        string           `json:"origin_url"`
	DetailURL        string           `json:"detail_url"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	Error            string           `json:"error"`
	ExtractedAtMs    int64            `json:"extracted_at_ms"`
}

// Item is one extraction request
type Item struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	SourceHint string `json:"source_hint,omitempty"`
}

// Progress is reported after each batch item settles
type Progress struct {
	Current int              `json:"current"`
	Total   int              `json:"total"`
	Status  ExtractionStatus `json:"status"`
	ItemID  string           `json:"item_id"`
}

// ProgressFunc receives batch progress notifications
type ProgressFunc func(Progress)

// Options tune one extraction call
type Options struct {
	Timeout        time.Duration
	EnableRetry    bool
	EnableCache    bool
	MaxConcurrency int
	// Pacing is the delay between batch waves; 0 uses the engine default
	// and a negative value disables it
	Pacing     time.Duration
	OnProgress ProgressFunc
}

// SourceInfo describes one supported source
type SourceInfo struct {
	SourceID     string   `json:"source_id"`
	DisplayName  string   `json:"display_name"`
	Capabilities []string `json:"capabilities"`
}

// ValidationResult is the outcome of validating an adapter
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	Capabilities []string `json:"capabilities"`
}

// CacheStats summarizes the cache contents
type CacheStats struct {
	TotalItems   int     `json:"total_items"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	ExpiredItems int     `json:"expired_items"`
	Backend      string  `json:"backend"`
}

type callerKey struct{}

// WithCaller stores the optional caller identity used for activity logging
func WithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerKey{}, callerID)
}

// CallerFrom returns the caller identity stored in ctx, if any
func CallerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}
