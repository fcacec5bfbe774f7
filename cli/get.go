package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"calbatch.evalgo.org/common"
)

var getCmd = &cobra.Command{
	Use:   "get-events",
	Short: "Find events matching a transaction id across the addressed mailboxes",
	Long: `get-events lists the events of every addressed mailbox and reports how many
carry the given --transaction-id prefix. Without a transaction id every
event is counted. --dump-events additionally prints each matching event.`,
	RunE: runGetEvents,
}

func init() {
	RootCmd.AddCommand(getCmd)

	getCmd.Flags().Bool("dump-events", false, "print every matching event")
	viper.BindPFlag("get.dump_events", getCmd.Flags().Lookup("dump-events"))
}

func runGetEvents(cmd *cobra.Command, args []string) error {
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

	mailboxes := make([]string, 0, len(found))
	for mailbox := range found {
		mailboxes = append(mailboxes, mailbox)
	}
	sort.Strings(mailboxes)

	dump := viper.GetBool("get.dump_events")
	total := 0
	for _, mailbox := range mailboxes {
		events := found[mailbox]
		total += len(events)
		fmt.Printf("%s: %d event(s)\n", mailbox, len(events))
		if dump {
			for _, event := range events {
				fmt.Printf("  %s - %s  %s  %s\n",
					event.Start.Format(time.RFC3339),
					event.End.Format(time.RFC3339),
					event.Subject,
					event.TransactionID)
			}
		}
	}

	common.Logger.WithFields(logrus.Fields{
		"transaction_id": settings.TransactionID,
		"mailboxes":      len(found),
		"events":         total,
	}).Info("find finished")
	return nil
}
