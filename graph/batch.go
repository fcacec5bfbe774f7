package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"calbatch.evalgo.org/calendar"
)

// Client satisfies the orchestrator's batch submission seam.
var _ calendar.Executor = (*Client)(nil)

// Execute submits one batch of keyed requests through the Graph $batch
// endpoint in a single round-trip and maps the per-request outcomes back to
// their step keys.
//
// The SDK assigns its own unique identifier to every batch step; a side
// mapping from SDK identifiers to step keys resolves the aggregated
// response, so correlation stays unambiguous no matter what the caller
// chose as keys. The caller is responsible for keeping batches at or below
// calendar.MaxBatchSize; the SDK rejects oversized batches as well.
func (c *Client) Execute(ctx context.Context, steps []calendar.Step) ([]calendar.StepResult, error) {
	batch := msgraphcore.NewBatchRequest(c.adapter)

	itemIDs := make(map[string]string, len(steps)) // step key -> SDK batch item id
	for _, step := range steps {
		item, err := batch.AddBatchRequestStep(*step.Request)
		if err != nil {
			return nil, fmt.Errorf("adding request %s to batch: %w", step.Key, err)
		}
		itemIDs[step.Key] = *item.GetId()
	}

	response, err := batch.Send(ctx, c.adapter)
	if err != nil {
		return nil, decorateGraphError(err)
	}

	results := make([]calendar.StepResult, 0, len(steps))
	for _, step := range steps {
		result := calendar.StepResult{Key: step.Key}

		item := response.GetResponseById(itemIDs[step.Key])
		if item == nil {
			// absent from the aggregated response, reported as status 0
			results = append(results, result)
			continue
		}
		if item.GetStatus() != nil {
			result.Status = int(*item.GetStatus())
		}
		if body := item.GetBody(); body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("re-encoding response body for %s: %w", step.Key, err)
			}
			result.Body = raw
		}
		results = append(results, result)
	}
	return results, nil
}

// decorateGraphError surfaces the OData error code and message when the
// batch submission itself is rejected by Graph, which otherwise drowns in
// the generic SDK error text.
func decorateGraphError(err error) error {
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		if detail := odataErr.GetErrorEscaped(); detail != nil {
			code, message := "", ""
			if detail.GetCode() != nil {
				code = *detail.GetCode()
			}
			if detail.GetMessage() != nil {
				message = *detail.GetMessage()
			}
			return fmt.Errorf("graph rejected batch (%s): %s: %w", code, message, err)
		}
	}
	return err
}
