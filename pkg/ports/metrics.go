package ports

// MetricsRecorder receives engine events. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// StateComposed is called when a state is committed to a page of the given scope kind
	// ("page" or "application").
	StateComposed(scope string, parameters int)

	// PageStored is called when a page is persisted.
	PageStored()

	// Validation is called once per validated request.
	Validation(outcome, reason string)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) StateComposed(string, int) {}
func (NopRecorder) PageStored()                {}
func (NopRecorder) Validation(string, string)  {}
