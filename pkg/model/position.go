package model

// Coords is the coordinate block of a native position fix.
// Heading and speed are reported as the SDK's sentinel values when unknown;
// they are passed through without interpretation.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Accuracy  float64 `json:"accuracy"` // Meters
	Heading   float64 `json:"heading"`  // Degrees
	Speed     float64 `json:"speed"`

	// Reverse-geocoded fields, present only when the SDK resolved an address.
	Address      string `json:"address,omitempty"`
	Country      string `json:"country,omitempty"`
	Province     string `json:"province,omitempty"`
	City         string `json:"city,omitempty"`
	Area         string `json:"area,omitempty"`
	Town         string `json:"town,omitempty"`
	Street       string `json:"street,omitempty"`
	StreetNumber string `json:"streetNumber,omitempty"`
	POIs         []POI  `json:"pois,omitempty"`
}

// POI is a nearby point of interest attached to a fix by the SDK.
type POI struct {
	UID     string  `json:"uid"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Rank    float64 `json:"rank"`
}

// Position is a single fix as produced by the native SDK.
type Position struct {
	Coords    Coords    `json:"coords"`
	Timestamp Timestamp `json:"timestamp"`
}
