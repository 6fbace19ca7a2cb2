package types

import "time"

// TimeWindow bounds an intraday observation period.
type TimeWindow struct {
	Start time.Duration // offset from midnight
	End   time.Duration
}

// ValuationMethod configures when and against which data the daily
// mark-to-market happens. A zero window means "no explicit window" and the
// engine falls back to its end-of-day default.
type ValuationMethod struct {
	Window       TimeWindow
	DataSourceId string
}

func NewValuationMethod(window TimeWindow, dataSourceId string) ValuationMethod {
	return ValuationMethod{
		Window:       window,
		DataSourceId: dataSourceId,
	}
}

func (w TimeWindow) IsZero() bool {
	return w.Start == 0 && w.End == 0
}
