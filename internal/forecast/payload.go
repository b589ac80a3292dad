package forecast

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/i474232898/should-i-shovel/internal/verdict"
)

// DecodePayload reads a forecast API payload and validates its series.
// Anything that is not a {"data": {...}} object with the required series is
// reported as a *verdict.InvalidInputError.
func DecodePayload(r io.Reader) (Forecast, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Forecast{}, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Forecast{}, &verdict.InvalidInputError{Reason: "payload is not a JSON object", Err: err}
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Forecast{}, verdict.NewInvalidInputError("payload has no data object")
	}
	if data[0] != '{' {
		return Forecast{}, verdict.NewInvalidInputError("data is not an object")
	}

	var f Forecast
	if err := json.Unmarshal(data, &f.Data); err != nil {
		return Forecast{}, &verdict.InvalidInputError{Reason: "data series are malformed", Err: err}
	}
	if err := f.Validate(); err != nil {
		return Forecast{}, err
	}
	return f, nil
}
