package config

// Persistent state keys (Registry)
const (
	KeyPrefix         = "location_"
	KeyTimeout        = "location_timeout"
	KeyMaximumAge     = "location_maximum_age"
	KeyHighAccuracy   = "location_high_accuracy"
	KeyInterval       = "location_interval"
	KeyDistanceFilter = "location_distance_filter"
)
