package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event represents one calendar item as seen by this tool. Instances are
// created remotely (Graph assigns ID and ICalUID), read back by the find
// path, and deleted by the delete path; the tool never mutates an event
// after creation.
type Event struct {
	// ID is the remote-assigned event identifier, valid within one mailbox.
	ID string

	// ICalUID is the calendar-independent identifier, stable across
	// mailboxes for the same logical event.
	ICalUID string

	// TransactionID is the correlation tag stamped at creation time,
	// formed as "<transaction prefix>_<unique suffix>".
	TransactionID string

	Subject string

	// Start and End are always normalized to UTC.
	Start time.Time
	End   time.Time
}

// EventDraft carries the caller-chosen attributes of an event to be created.
// Remote identifiers do not exist yet at this point.
type EventDraft struct {
	Subject       string
	TransactionID string
	Start         time.Time
	End           time.Time
}

// graphDateTime mirrors the Graph dateTimeTimeZone resource: a naive local
// timestamp plus a named time zone.
type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID            string        `json:"id"`
	ICalUID       string        `json:"iCalUId"`
	TransactionID string        `json:"transactionId"`
	Subject       string        `json:"subject"`
	Start         graphDateTime `json:"start"`
	End           graphDateTime `json:"end"`
}

type graphEventList struct {
	Value []graphEvent `json:"value"`
}

// graph emits naive timestamps with a variable number of fractional digits
var graphTimeLayouts = []string{
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseGraphTime converts a Graph dateTimeTimeZone into a UTC time.Time.
// List requests carry a Prefer header asking Graph for UTC, so any zone
// other than UTC in the response is treated as malformed data.
func parseGraphTime(value graphDateTime) (time.Time, error) {
	if value.DateTime == "" {
		return time.Time{}, fmt.Errorf("empty dateTime")
	}
	if value.TimeZone != "" && value.TimeZone != "UTC" {
		return time.Time{}, fmt.Errorf("unexpected time zone %q, requested UTC", value.TimeZone)
	}
	for _, layout := range graphTimeLayouts {
		if t, err := time.Parse(layout, value.DateTime); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable dateTime %q", value.DateTime)
}

// decodeEventList decodes a Graph event collection response body into Events.
// A malformed body or an unparsable timestamp fails the whole list; the
// caller excludes that mailbox and continues with the others.
func decodeEventList(body []byte) ([]Event, error) {
	var list graphEventList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding event collection: %w", err)
	}

	events := make([]Event, 0, len(list.Value))
	for _, raw := range list.Value {
		start, err := parseGraphTime(raw.Start)
		if err != nil {
			return nil, fmt.Errorf("event %s: start: %w", raw.ID, err)
		}
		end, err := parseGraphTime(raw.End)
		if err != nil {
			return nil, fmt.Errorf("event %s: end: %w", raw.ID, err)
		}
		events = append(events, Event{
			ID:            raw.ID,
			ICalUID:       raw.ICalUID,
			TransactionID: raw.TransactionID,
			Subject:       raw.Subject,
			Start:         start,
			End:           end,
		})
	}
	return events, nil
}
