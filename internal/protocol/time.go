package protocol

import (
	"fmt"
	"time"
)

// UTCTime serializes as RFC 3339 with an explicit UTC offset regardless of
// the zone the value was scanned with. The store keeps timestamps without a
// timezone and treats them as UTC on read.
type UTCTime time.Time

func (t UTCTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Time(t).UTC().Format(time.RFC3339))), nil
}

func (t *UTCTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	parsed, err := time.Parse(`"`+time.RFC3339+`"`, string(data))
	if err != nil {
		return err
	}
	*t = UTCTime(parsed.UTC())
	return nil
}

func (t UTCTime) Time() time.Time { return time.Time(t) }
