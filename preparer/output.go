package preparer

import "time"

// Row is a single forecast period. Every numeric field is floored at zero.
type Row struct {
	Date      time.Time `json:"date"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}

// Output spans the history and the requested horizon in ascending date order
type Output []Row

// Future returns the trailing periods rows which make up the projection
func (o Output) Future(periods int) Output {
	if periods <= 0 {
		return Output{}
	}
	if periods >= len(o) {
		return o
	}
	return o[len(o)-periods:]
}

// History returns the rows preceding the trailing periods rows
func (o Output) History(periods int) Output {
	if periods <= 0 {
		return o
	}
	if periods >= len(o) {
		return Output{}
	}
	return o[:len(o)-periods]
}

func (o Output) Dates() []time.Time {
	t := make([]time.Time, len(o))
	for i, r := range o {
		t[i] = r.Date
	}
	return t
}
