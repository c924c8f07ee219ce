package common

import "encoding/json"

// HoursInDay is the number of hourly buckets of the hourly metric
const HoursInDay = 24

// SiteActive30 holds the active visits of a single site during the last 30 minutes
type SiteActive30 struct {
	IDSite   int `json:"idSite"`
	Active30 int `json:"active_30"`
}

// Active30Response is the payload served on /api/active_30
type Active30Response struct {
	UpdatedAt     string         `json:"updated_at"`
	TTL           int            `json:"ttl"`
	TotalActive30 int            `json:"total_active_30"`
	BySite        []SiteActive30 `json:"by_site"`
}

// SiteHourly holds today's visits of a single site, indexed by local hour
type SiteHourly struct {
	IDSite int   `json:"idSite"`
	Visits []int `json:"visits"`
}

// HourlyResponse is the payload served on /api/hourly_today
type HourlyResponse struct {
	UpdatedAt string       `json:"updated_at"`
	TTL       int          `json:"ttl"`
	Hours     []int        `json:"hours"`
	Visits    []int        `json:"visits"`
	BySite    []SiteHourly `json:"by_site"`
}

// ErrorDetails is the inner part of the error envelope
type ErrorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope is the uniform error shape returned by all endpoints
type ErrorEnvelope struct {
	Error ErrorDetails `json:"error"`
}

// HealthResponse is the payload served on /api/health
type HealthResponse struct {
	OK        bool              `json:"ok"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// NewZeroHours returns a zero-filled 24 buckets slice
func NewZeroHours() []int {
	return make([]int, HoursInDay)
}

// HourLabels returns the literal [0..23] sequence
func HourLabels() []int {
	hours := make([]int, HoursInDay)
	for i := range hours {
		hours[i] = i
	}

	return hours
}

// Outcomes of serving a metric request, reported in the X-Cache-Outcome header
const (
	OutcomeCacheHit      = "CACHE_HIT"
	OutcomeStaleFallback = "STALE_FALLBACK"
	OutcomeFresh         = "FRESH"
)

// MetricResult is the payload to be served, along with the way it was obtained
type MetricResult struct {
	Payload json.RawMessage
	Outcome string
}
