package workflow

import "github.com/clinicops/chartquery/internal/extract"

// Route is the outcome of the single conditional edge in the workflow.
// It remembers which parts were missing so the fallback message can
// name them.
type Route struct {
	Proceed           bool
	MissingIdentifier bool
	MissingFields     bool
}

// DecideRoute is a pure function of the extraction result. Proceed
// requires a non-absent identifier and a non-empty field set; any
// other combination falls back. There is no edge back to extraction.
func DecideRoute(extraction *extract.Result) Route {
	if extraction == nil {
		return Route{MissingIdentifier: true, MissingFields: true}
	}

	route := Route{
		MissingIdentifier: extraction.Identifier == "",
		MissingFields:     len(extraction.Fields) == 0,
	}
	route.Proceed = !route.MissingIdentifier && !route.MissingFields

	return route
}

// FallbackMessage names the missing parts for the NoData terminal.
func (r Route) FallbackMessage() string {
	switch {
	case r.MissingIdentifier && r.MissingFields:
		return MessageNoIdentifierNoFields
	case r.MissingFields:
		return MessageNoFields
	case r.MissingIdentifier:
		return MessageNoIdentifier
	default:
		return MessageNoRows
	}
}
