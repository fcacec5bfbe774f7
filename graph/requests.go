package graph

import (
	"context"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"calbatch.evalgo.org/calendar"
)

// Client satisfies the orchestrator's request building seam.
var _ calendar.RequestFactory = (*Client)(nil)

// graphTimeFormat is the naive timestamp layout Graph expects inside a
// dateTimeTimeZone resource; the zone travels in the separate timeZone
// field.
const graphTimeFormat = "2006-01-02T15:04:05"

// eventFields is the field selection for list requests; everything the
// calendar package decodes, nothing more.
var eventFields = []string{"id", "iCalUId", "transactionId", "subject", "start", "end"}

func ptrInt32(i int32) *int32 {
	return &i
}

func ptrString(s string) *string {
	return &s
}

func dateTimeTimeZone(t time.Time) models.DateTimeTimeZoneable {
	value := models.NewDateTimeTimeZone()
	value.SetDateTime(ptrString(t.UTC().Format(graphTimeFormat)))
	value.SetTimeZone(ptrString("UTC"))
	return value
}

// CreateEvent builds a POST /users/{mailbox}/events request for the given
// draft without executing it. The draft's transaction id doubles as the
// Graph idempotency token: resubmitting the same event after a timeout
// cannot create a duplicate.
func (c *Client) CreateEvent(ctx context.Context, mailbox string, draft calendar.EventDraft) (*abstractions.RequestInformation, error) {
	event := models.NewEvent()
	event.SetSubject(ptrString(draft.Subject))
	event.SetTransactionId(ptrString(draft.TransactionID))
	event.SetStart(dateTimeTimeZone(draft.Start))
	event.SetEnd(dateTimeTimeZone(draft.End))

	return c.sdk.Users().
		ByUserId(mailbox).
		Events().
		ToPostRequestInformation(ctx, event, nil)
}

// ListEvents builds a GET /users/{mailbox}/events request ordered by start
// time. The Prefer header pins response timestamps to UTC so the calendar
// package can decode them without zone lookups.
func (c *Client) ListEvents(ctx context.Context, mailbox string, pageSize int32) (*abstractions.RequestInformation, error) {
	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	requestConfig := &users.ItemEventsRequestBuilderGetRequestConfiguration{
		Headers: headers,
		QueryParameters: &users.ItemEventsRequestBuilderGetQueryParameters{
			Top:     ptrInt32(pageSize),
			Orderby: []string{"start/dateTime"},
			Select:  eventFields,
		},
	}

	return c.sdk.Users().
		ByUserId(mailbox).
		Events().
		ToGetRequestInformation(ctx, requestConfig)
}

// DeleteEvent builds a DELETE /users/{mailbox}/events/{eventID} request.
func (c *Client) DeleteEvent(ctx context.Context, mailbox, eventID string) (*abstractions.RequestInformation, error) {
	return c.sdk.Users().
		ByUserId(mailbox).
		Events().
		ByEventId(eventID).
		ToDeleteRequestInformation(ctx, nil)
}
