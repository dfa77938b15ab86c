package rfctime

import (
	"bytes"
	"fmt"
	"time"
)

// date-time in https://www.ietf.org/rfc/rfc3339.txt .
// this is known as a subset of ISO8601 extended format.
//
// Timestamps cross the wire normalized to UTC, second precision.
type RFC3339 time.Time

const wireFormat = "2006-01-02T15:04:05Z07:00"

func New(t time.Time) RFC3339 {
	return RFC3339(t.UTC().Truncate(time.Second))
}

func (rfctime RFC3339) Time() time.Time {
	return time.Time(rfctime)
}

func (rfctime RFC3339) Equal(other RFC3339) bool {
	return rfctime.Time().Equal(other.Time())
}

func (rfctime RFC3339) String() string {
	return rfctime.Time().UTC().Format(wireFormat)
}

func (rfctime RFC3339) MarshalJSON() ([]byte, error) {
	return []byte(`"` + rfctime.String() + `"`), nil
}

func (rfctime *RFC3339) UnmarshalJSON(b []byte) error {
	expr := string(bytes.Trim(b, `"`))
	t, err := time.Parse(time.RFC3339Nano, expr)
	if err != nil {
		return fmt.Errorf("not a RFC3339 timestamp: %s: %w", expr, err)
	}
	*rfctime = New(t)
	return nil
}
