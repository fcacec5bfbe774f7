package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calbatch.evalgo.org/common"
)

var createCmd = &cobra.Command{
	Use:   "create-events",
	Short: "Create randomized sample events across the addressed mailboxes",
	Long: `create-events performs ten sequential creation runs. Each run advances the
start-time cursor by two hours and gives every mailbox a random number of
events (at most --max-events, capped at 4) in sequential 30-minute slots.

All created events share one transaction id prefix. When --transaction-id
is not set a fresh one is generated and logged; note it down to find or
delete the events later.`,
	RunE: runCreateEvents,
}

func init() {
	RootCmd.AddCommand(createCmd)

	createCmd.Flags().Int("max-events", 1, "maximum events per mailbox per run, at most 4")
	viper.BindPFlag("create.max_events", createCmd.Flags().Lookup("max-events"))
}

func runCreateEvents(cmd *cobra.Command, args []string) error {
	settings, orchestrator, err := newOrchestrator()
	if err != nil {
		return err
	}

	prefix := settings.TransactionID
	if prefix == "" {
		prefix = uuid.NewString()
		common.Logger.WithField("transaction_id", prefix).
			Info("no transaction id given, generated one for this run")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	maxEvents := viper.GetInt("create.max_events")
	if err := orchestrator.CreateSampleEvents(ctx, settings.Mailboxes(), maxEvents, prefix); err != nil {
		return err
	}

	common.Logger.WithField("transaction_id", prefix).Info("event creation finished")
	return nil
}
