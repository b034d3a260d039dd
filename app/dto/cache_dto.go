package dto

// CacheStatsResponse reports quote cache statistics
type CacheStatsResponse struct {
	Message  string  `json:"message"`
	Provider string  `json:"provider"`
	Size     int64   `json:"size"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// InvalidateCacheResponse acknowledges a manual cache invalidation
type InvalidateCacheResponse struct {
	Message string `json:"message"`
}
