// Package calendar implements the batch event orchestrator: the component
// that expands per-mailbox calendar operations into individual Graph
// requests, partitions them into size-bounded batches, submits the batches
// strictly one after another, and reconciles per-item outcomes from the
// aggregated batch responses.
//
// The orchestrator composes over two narrow collaborators so that the
// control flow stays testable without network access:
//
//   - RequestFactory builds the individual create/list/delete requests
//     without sending them (the graph package implements it on the
//     msgraph-sdk-go fluent builders).
//   - Executor submits one batch of keyed requests in a single round-trip
//     and returns per-request status and payload (the graph package
//     implements it on msgraph-sdk-go-core's batch support).
//
// Batches are never submitted concurrently: Exchange Online enforces a
// per-mailbox concurrency ceiling of four requests, and parallel batches
// would multiply throttling without improving throughput. Cancellation is
// honored at every batch boundary and passed into the in-flight round-trip.
package calendar

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"calbatch.evalgo.org/common"
)

const (
	// MaxBatchSize is the hard ceiling the Graph batch endpoint places on
	// the number of requests in one $batch round-trip.
	MaxBatchSize = 20

	// MaxEventsPerMailbox is the Exchange Online ceiling on concurrent
	// requests addressing a single mailbox within one batch execution.
	// Creating more events than this per mailbox per run would only
	// produce throttled items, so the create path clamps to it.
	MaxEventsPerMailbox = 4

	// createRuns is the number of sequential creation runs performed by
	// one CreateSampleEvents invocation.
	createRuns = 10

	// runInterval separates the start-time cursors of consecutive runs.
	runInterval = 2 * time.Hour

	// slotDuration is the length of each created event and the spacing of
	// sequential slots within one run.
	slotDuration = 30 * time.Minute

	// findPageSize is the page size requested on list calls. Sample data
	// sets stay well below it so a single page returns everything.
	findPageSize = 999
)

// Step is one keyed request inside a batch. Key is a generated token unique
// within the whole operation; the orchestrator keeps side mappings from keys
// back to mailboxes and events, so response correlation is never ambiguous
// even when several requests address the same mailbox.
type Step struct {
	Key     string
	Request *abstractions.RequestInformation
}

// StepResult is the per-request outcome extracted from one aggregated batch
// response.
type StepResult struct {
	Key    string
	Status int
	Body   []byte
}

// OK reports whether the step completed with a 2xx status.
func (r StepResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// RequestFactory builds individual calendar requests without executing them.
type RequestFactory interface {
	CreateEvent(ctx context.Context, mailbox string, draft EventDraft) (*abstractions.RequestInformation, error)
	ListEvents(ctx context.Context, mailbox string, pageSize int32) (*abstractions.RequestInformation, error)
	DeleteEvent(ctx context.Context, mailbox, eventID string) (*abstractions.RequestInformation, error)
}

// Executor submits one batch of keyed requests in a single network
// round-trip. Implementations must return one StepResult per submitted step;
// a non-nil error means the batch itself could not be executed and aborts
// the operation.
type Executor interface {
	Execute(ctx context.Context, steps []Step) ([]StepResult, error)
}

// Options configures an Orchestrator. The zero value is usable: batch size
// defaults to MaxBatchSize and the remaining knobs get production defaults.
// Rand, Now and NewID exist so tests can pin randomness, time and generated
// identifiers.
type Options struct {
	// BatchSize bounds the number of requests per batch. Values above
	// MaxBatchSize are rejected by NewOrchestrator; the config layer
	// clamps user input before it gets here.
	BatchSize int

	// Logger receives the per-batch progress lines and per-item failure
	// reports. Defaults to the shared common.Logger.
	Logger *logrus.Logger

	// Rand returns a uniformly distributed int in [0,n). Defaults to
	// math/rand seeded from the global source.
	Rand func(n int) int

	// Now supplies the start-time cursor for creation runs. Defaults to
	// time.Now.
	Now func() time.Time

	// NewID generates unique tokens for step keys and correlation tag
	// suffixes. Defaults to uuid.NewString.
	NewID func() string

	// Pace optionally spaces out batch submissions to stay friendly to
	// Graph throttling. Nil disables pacing.
	Pace *rate.Limiter
}

// Orchestrator fans per-mailbox calendar operations out into batched Graph
// requests. All methods are safe for sequential use from a single goroutine;
// the orchestrator holds no cross-call mutable state.
type Orchestrator struct {
	factory   RequestFactory
	exec      Executor
	batchSize int
	logger    *logrus.Logger
	randInt   func(n int) int
	now       func() time.Time
	newID     func() string
	pace      *rate.Limiter
}

// NewOrchestrator validates opts and builds an Orchestrator. The batch size
// is checked once here: non-positive sizes and sizes above the remote
// ceiling are configuration errors, not silently adjusted values.
func NewOrchestrator(factory RequestFactory, exec Executor, opts Options) (*Orchestrator, error) {
	if factory == nil {
		return nil, fmt.Errorf("calendar: request factory is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("calendar: batch executor is required")
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = MaxBatchSize
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("calendar: batch size must be at least 1, got %d", batchSize)
	}
	if batchSize > MaxBatchSize {
		return nil, fmt.Errorf("calendar: batch size %d exceeds the remote ceiling of %d", batchSize, MaxBatchSize)
	}

	o := &Orchestrator{
		factory:   factory,
		exec:      exec,
		batchSize: batchSize,
		logger:    opts.Logger,
		randInt:   opts.Rand,
		now:       opts.Now,
		newID:     opts.NewID,
		pace:      opts.Pace,
	}
	if o.logger == nil {
		o.logger = common.Logger
	}
	if o.randInt == nil {
		o.randInt = rand.Intn
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// CreateSampleEvents creates randomized sample events in every given mailbox
// over ten sequential runs. Each run advances a start-time cursor by two
// hours; within a run every mailbox receives a uniformly random number of
// events in [0, maxEventsPerMailbox], laid out in sequential 30-minute slots
// from the run cursor. Subjects are numbered "Event 1", "Event 2", ...
// across the whole invocation, and every event carries the correlation tag
// "<prefix>_<unique id>" so a later find or delete with the same prefix
// addresses exactly this invocation's events.
//
// maxEventsPerMailbox is clamped to MaxEventsPerMailbox. Creation is
// best-effort per item: non-2xx step outcomes are logged and skipped, only
// a whole-batch transport failure aborts the remaining runs.
func (o *Orchestrator) CreateSampleEvents(ctx context.Context, mailboxes []string, maxEventsPerMailbox int, prefix string) error {
	if len(mailboxes) == 0 {
		return nil
	}
	if maxEventsPerMailbox < 0 {
		maxEventsPerMailbox = 0
	}
	if maxEventsPerMailbox > MaxEventsPerMailbox {
		o.logger.WithFields(logrus.Fields{
			"requested": maxEventsPerMailbox,
			"effective": MaxEventsPerMailbox,
		}).Warn("max events per mailbox clamped to the per-mailbox concurrency ceiling")
		maxEventsPerMailbox = MaxEventsPerMailbox
	}

	cursor := o.now().UTC()
	subjectNo := 0

	for run := 1; run <= createRuns; run++ {
		steps := make([]Step, 0, len(mailboxes)*maxEventsPerMailbox)
		for _, mailbox := range mailboxes {
			count := o.randInt(maxEventsPerMailbox + 1)
			slot := cursor
			for i := 0; i < count; i++ {
				subjectNo++
				draft := EventDraft{
					Subject:       fmt.Sprintf("Event %d", subjectNo),
					TransactionID: prefix + "_" + o.newID(),
					Start:         slot,
					End:           slot.Add(slotDuration),
				}
				request, err := o.factory.CreateEvent(ctx, mailbox, draft)
				if err != nil {
					return fmt.Errorf("building create request for %s: %w", mailbox, err)
				}
				steps = append(steps, Step{Key: o.newID(), Request: request})
				slot = slot.Add(slotDuration)
			}
		}

		o.logger.WithFields(logrus.Fields{
			"run":      run,
			"runs":     createRuns,
			"requests": len(steps),
			"cursor":   cursor.Format(time.RFC3339),
		}).Info("creating events")

		results, err := o.submit(ctx, "create", steps)
		if err != nil {
			return err
		}
		for _, result := range results {
			if !result.OK() {
				o.logger.WithFields(logrus.Fields{
					"operation": "create",
					"step":      result.Key,
					"status":    result.Status,
				}).Error("create request rejected")
			}
		}

		cursor = cursor.Add(runInterval)
	}
	return nil
}

// FindEvents lists the events of every given mailbox and returns them keyed
// by mailbox, ordered by start time. When prefix is non-empty only events
// whose correlation tag starts with prefix (case-sensitive) are kept; an
// empty prefix keeps everything. Mailboxes whose list request fails, whose
// response cannot be decoded, or which yield no matching events are absent
// from the returned map; only a whole-batch transport failure is returned
// as an error.
func (o *Orchestrator) FindEvents(ctx context.Context, mailboxes []string, prefix string) (map[string][]Event, error) {
	found := make(map[string][]Event)
	if len(mailboxes) == 0 {
		return found, nil
	}

	steps := make([]Step, 0, len(mailboxes))
	owner := make(map[string]string, len(mailboxes))
	for _, mailbox := range mailboxes {
		request, err := o.factory.ListEvents(ctx, mailbox, findPageSize)
		if err != nil {
			return nil, fmt.Errorf("building list request for %s: %w", mailbox, err)
		}
		key := o.newID()
		owner[key] = mailbox
		steps = append(steps, Step{Key: key, Request: request})
	}

	results, err := o.submit(ctx, "find", steps)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		mailbox, ok := owner[result.Key]
		if !ok {
			o.logger.WithField("step", result.Key).Warn("batch response for unknown step, dropped")
			continue
		}
		if !result.OK() {
			o.logger.WithFields(logrus.Fields{
				"operation": "find",
				"mailbox":   mailbox,
				"status":    result.Status,
			}).Error("listing events failed")
			continue
		}

		events, err := decodeEventList(result.Body)
		if err != nil {
			o.logger.WithFields(logrus.Fields{
				"operation": "find",
				"mailbox":   mailbox,
			}).WithError(err).Error("discarding undecodable event list")
			continue
		}

		matched := make([]Event, 0, len(events))
		for _, event := range events {
			if prefix == "" || strings.HasPrefix(event.TransactionID, prefix) {
				matched = append(matched, event)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Start.Before(matched[j].Start)
		})
		found[mailbox] = matched
	}
	return found, nil
}

// deleteTarget maps a step key back to the event it deletes, for failure
// reporting.
type deleteTarget struct {
	mailbox string
	iCalUID string
}

// DeleteEvents deletes every event in the given mailbox-to-events mapping.
// Events missing either their remote identifier or their calendar-
// independent identifier cannot be deleted and are silently skipped.
// Non-2xx step outcomes are logged and do not abort the loop.
//
// Known gap: a batch carrying more than four deletes for one mailbox may
// see some of them throttled by the per-mailbox concurrency ceiling; those
// show up as logged per-item failures and can be retried with another run.
func (o *Orchestrator) DeleteEvents(ctx context.Context, events map[string][]Event) error {
	mailboxes := make([]string, 0, len(events))
	for mailbox := range events {
		mailboxes = append(mailboxes, mailbox)
	}
	sort.Strings(mailboxes)

	steps := make([]Step, 0)
	targets := make(map[string]deleteTarget)
	for _, mailbox := range mailboxes {
		for _, event := range events[mailbox] {
			if event.ID == "" || event.ICalUID == "" {
				continue
			}
			request, err := o.factory.DeleteEvent(ctx, mailbox, event.ID)
			if err != nil {
				return fmt.Errorf("building delete request for %s: %w", mailbox, err)
			}
			key := o.newID()
			targets[key] = deleteTarget{mailbox: mailbox, iCalUID: event.ICalUID}
			steps = append(steps, Step{Key: key, Request: request})
		}
	}
	if len(steps) == 0 {
		return nil
	}

	o.logger.WithField("requests", len(steps)).Info("deleting events")

	results, err := o.submit(ctx, "delete", steps)
	if err != nil {
		return err
	}
	for _, result := range results {
		if !result.OK() {
			target := targets[result.Key]
			o.logger.WithFields(logrus.Fields{
				"operation": "delete",
				"mailbox":   target.mailbox,
				"iCalUId":   target.iCalUID,
				"status":    result.Status,
			}).Error("delete request rejected")
		}
	}
	return nil
}

// submit partitions steps into batches and submits them strictly
// sequentially, collecting all per-step results. Cancellation is checked at
// every batch boundary and the context is passed into the round-trip itself.
// A transport-level failure of any batch aborts the remaining ones.
func (o *Orchestrator) submit(ctx context.Context, operation string, steps []Step) ([]StepResult, error) {
	batches := chunk(steps, o.batchSize)
	results := make([]StepResult, 0, len(steps))

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s aborted before batch %d/%d: %w", operation, i+1, len(batches), err)
		}
		if o.pace != nil {
			if err := o.pace.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%s aborted before batch %d/%d: %w", operation, i+1, len(batches), err)
			}
		}

		o.logger.WithFields(logrus.Fields{
			"operation": operation,
			"batch":     i + 1,
			"batches":   len(batches),
			"requests":  len(batch),
		}).Info("submitting batch")

		batchResults, err := o.exec.Execute(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%s batch %d/%d failed: %w", operation, i+1, len(batches), err)
		}
		results = append(results, batchResults...)
	}
	return results, nil
}
