package forecast

import (
	"strings"

	"chart-bot/api/internal/apperr"
)

// RequiredKeys must be present for a forecast to be usable.
var RequiredKeys = []string{KeyDirection, KeyConfidence, KeyHorizonMinutes}

// IncompleteError carries the partial answer so it can be shown back to the user.
type IncompleteError struct {
	Missing []string
	Fields  Fields
}

func (e *IncompleteError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate only checks key presence. Values are not type-checked here.
func Validate(f Fields) error {
	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := f[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperr.Wrap(apperr.KindIncompleteForecast, "forecast.validate", "incomplete forecast",
		&IncompleteError{Missing: missing, Fields: f})
}
