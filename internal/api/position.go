package api

import (
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"locbridge/pkg/locator"
	"locbridge/pkg/model"
)

// PositionHandler serves one-shot fixes.
type PositionHandler struct {
	loc *locator.Locator
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(loc *locator.Locator) *PositionHandler {
	return &PositionHandler{loc: loc}
}

// HandlePosition blocks for a single fix. ?format=geojson returns a Feature.
func (h *PositionHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	ro, err := parseQueryOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, err := h.loc.CurrentPosition(r.Context(), ro.Apply()...)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away.
			return
		}
		writeErr(w, err)
		return
	}

	if r.URL.Query().Get("format") == "geojson" {
		writeJSON(w, http.StatusOK, positionFeature(pos))
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func positionFeature(p model.Position) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Coords.Longitude, p.Coords.Latitude})
	f.Properties["accuracy"] = p.Coords.Accuracy
	f.Properties["altitude"] = p.Coords.Altitude
	f.Properties["heading"] = p.Coords.Heading
	f.Properties["speed"] = p.Coords.Speed
	f.Properties["timestamp"] = p.Timestamp
	if p.Coords.Address != "" {
		f.Properties["address"] = p.Coords.Address
	}
	return f
}
