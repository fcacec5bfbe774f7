package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventList(t *testing.T) {
	body := []byte(`{
		"value": [
			{
				"id": "AAMkAGI1",
				"iCalUId": "040000008200E001",
				"transactionId": "LoadTest01_a1b2",
				"subject": "Event 1",
				"start": {"dateTime": "2025-08-25T10:00:00.0000000", "timeZone": "UTC"},
				"end":   {"dateTime": "2025-08-25T10:30:00.0000000", "timeZone": "UTC"}
			},
			{
				"id": "AAMkAGI2",
				"iCalUId": "040000008200E002",
				"transactionId": "LoadTest01_c3d4",
				"subject": "Event 2",
				"start": {"dateTime": "2025-08-25T12:00:00", "timeZone": "UTC"},
				"end":   {"dateTime": "2025-08-25T12:30:00", "timeZone": "UTC"}
			}
		]
	}`)

	events, err := decodeEventList(body)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "AAMkAGI1", events[0].ID)
	assert.Equal(t, "040000008200E001", events[0].ICalUID)
	assert.Equal(t, "LoadTest01_a1b2", events[0].TransactionID)
	assert.Equal(t, "Event 1", events[0].Subject)
	assert.Equal(t, time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2025, 8, 25, 10, 30, 0, 0, time.UTC), events[0].End)
	assert.Equal(t, time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC), events[1].Start)
}

func TestDecodeEventListEmpty(t *testing.T) {
	events, err := decodeEventList([]byte(`{"value": []}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeEventListMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "NotJSON", body: `<html>503</html>`},
		{name: "BadStartTime", body: `{"value":[{"id":"x","start":{"dateTime":"yesterday","timeZone":"UTC"},"end":{"dateTime":"2025-08-25T10:30:00","timeZone":"UTC"}}]}`},
		{name: "MissingStart", body: `{"value":[{"id":"x","end":{"dateTime":"2025-08-25T10:30:00","timeZone":"UTC"}}]}`},
		{name: "NonUTCZone", body: `{"value":[{"id":"x","start":{"dateTime":"2025-08-25T10:00:00","timeZone":"Pacific Standard Time"},"end":{"dateTime":"2025-08-25T10:30:00","timeZone":"UTC"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEventList([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseGraphTimeLayouts(t *testing.T) {
	want := time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

	for _, dateTime := range []string{
		"2025-08-25T10:00:00.0000000",
		"2025-08-25T10:00:00",
		"2025-08-25T10:00:00Z",
	} {
		got, err := parseGraphTime(graphDateTime{DateTime: dateTime, TimeZone: "UTC"})
		require.NoError(t, err, dateTime)
		assert.True(t, want.Equal(got), dateTime)
	}
}
