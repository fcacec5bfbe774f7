package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"calbatch.evalgo.org/common"
)

var deleteCmd = &cobra.Command{
	Use:   "delete-events",
	Short: "Delete events matching a transaction id across the addressed mailboxes",
	Long: `delete-events first finds the events carrying the given --transaction-id
prefix, then deletes them. Without a transaction id every event in the
addressed mailboxes is deleted, so set one unless a full wipe is intended.

Per-item delete failures (for example throttled requests) are logged and do
not abort the run; rerunning the command removes the leftovers.`,
	RunE: runDeleteEvents,
}

func init() {
	RootCmd.AddCommand(deleteCmd)
}

func runDeleteEvents(cmd *cobra.Command, args []string) error {
	settings, orchestrator, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	found, err := orchestrator.FindEvents(ctx, settings.Mailboxes(), settings.TransactionID)
	if err != nil {
		return err
	}

	total := 0
	for _, events := range found {
		total += len(events)
	}
	if total == 0 {
		common.Logger.WithField("transaction_id", settings.TransactionID).
			Info("no matching events found, nothing to delete")
		return nil
	}

	common.Logger.WithFields(logrus.Fields{
		"transaction_id": settings.TransactionID,
		"mailboxes":      len(found),
		"events":         total,
	}).Info("deleting matching events")

	if err := orchestrator.DeleteEvents(ctx, found); err != nil {
		return err
	}

	common.Logger.Info("event deletion finished")
	return nil
}
