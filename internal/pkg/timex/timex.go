/*
Package timex formats protocol timestamps: RFC 3339 in UTC with exactly three
fractional digits, e.g. "2026-01-02T03:04:05.100Z".
*/
package timex

import "time"

// Layout is the wire layout of every timestamp.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// Millis is a time.Time that marshals to JSON in Layout.
type Millis time.Time

// MarshalJSON writes the time in UTC using Layout.
func (m Millis) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(Layout)+2)
	b = append(b, '"')
	b = time.Time(m).UTC().AppendFormat(b, Layout)
	return append(b, '"'), nil
}

// UnmarshalJSON accepts any RFC 3339 timestamp.
func (m *Millis) UnmarshalJSON(data []byte) error {
	var t time.Time
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = Millis(t)
	return nil
}

// Ptr converts an optional time, keeping nil as nil.
func Ptr(t *time.Time) *Millis {
	if t == nil {
		return nil
	}
	m := Millis(*t)
	return &m
}
