package events

import (
	"encoding/json"

	"locbridge/pkg/model"
)

// Outcome is a decoded event: exactly one of Position or Failure is set.
// A Failure decoded here always has code PositionUnavailable; its Message
// may be empty when the payload carried none.
type Outcome struct {
	Position *model.Position
	Failure  *model.Failure
}

// OK reports whether the outcome carries a position.
func (o Outcome) OK() bool {
	return o.Position != nil
}

// FailureOr returns the outcome's failure, or a PositionUnavailable failure
// with fallback as message. Empty messages are replaced with fallback.
func (o Outcome) FailureOr(fallback string) model.Failure {
	if o.Failure == nil {
		return model.NewFailure(model.PositionUnavailable, "", fallback)
	}
	return model.NewFailure(o.Failure.Code, o.Failure.Message, fallback)
}

type rawEvent struct {
	Coords    *model.Coords   `json:"coords"`
	Timestamp json.RawMessage `json:"timestamp"`
	Error     *string         `json:"error"`
}

const malformedMessage = "malformed location event"

// Decode turns a raw event payload into an Outcome.
// A payload with a non-empty "error" field is a failure even when it also
// carries coordinates.
func Decode(payload []byte) Outcome {
	var ev rawEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return failure(malformedMessage)
	}
	if ev.Error != nil && *ev.Error != "" {
		return failure(*ev.Error)
	}
	if ev.Coords == nil {
		if ev.Error != nil {
			return failure("")
		}
		return failure(malformedMessage)
	}
	return Outcome{Position: &model.Position{
		Coords:    *ev.Coords,
		Timestamp: model.ParseTimestamp(ev.Timestamp),
	}}
}

// Encode builds the wire payload for a position.
func Encode(p *model.Position) []byte {
	data, err := json.Marshal(p)
	if err != nil {
		return EncodeError(err.Error())
	}
	return data
}

// EncodeError builds the wire payload for an error event.
func EncodeError(msg string) []byte {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}

func failure(msg string) Outcome {
	return Outcome{Failure: &model.Failure{Code: model.PositionUnavailable, Message: msg}}
}
