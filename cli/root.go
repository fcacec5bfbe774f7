// Package cli implements the calbatch command line interface on cobra and
// viper. The root command owns the shared flag surface (authentication,
// mailbox fan-out, batching, logging); the subcommands create-events,
// get-events and delete-events each wire one calendar operation.
//
// Every flag is bound to a dotted viper key and can also be supplied through
// a CALBATCH_* environment variable, with flags taking precedence. See the
// config package for the full key table.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"calbatch.evalgo.org/calendar"
	"calbatch.evalgo.org/common"
	"calbatch.evalgo.org/config"
	"calbatch.evalgo.org/graph"
	"calbatch.evalgo.org/version"
)

// batchPace spaces consecutive batch submissions so long operations stay
// below the Graph throttling thresholds.
const batchPace = 250 * time.Millisecond

// RootCmd is the calbatch root command. Subcommands register themselves in
// their init functions.
var RootCmd = &cobra.Command{
	Use:   "calbatch",
	Short: "Bulk calendar event operations across Exchange Online mailboxes",
	Long: `calbatch creates, finds and deletes calendar events across many user
mailboxes through the Microsoft Graph batch endpoint.

Mailboxes are addressed through a template with one integer placeholder,
for example --mailbox-template "user%d@contoso.com" --num-mailbox 50.
Created events carry a shared transaction id prefix so a later get-events
or delete-events run with the same --transaction-id addresses exactly the
events of one creation run.

Authentication uses Azure AD client credentials: either --client-secret or
a --pfx certificate file. Every flag can also be supplied through a
CALBATCH_* environment variable, for example CALBATCH_AUTH_CLIENT_SECRET.`,
	Version:       version.GetBuildInfo().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.Configure(common.LoggerConfig{
			Level:  common.LogLevel(viper.GetString("logging.level")),
			Format: viper.GetString("logging.format"),
		})
	},
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.String("tenant-id", config.DefaultTenant, "Azure AD tenant id")
	flags.String("client-id", "", "Azure AD application (client) id")
	flags.String("client-secret", "", "client secret for the application")
	flags.String("pfx", "", "path to a PFX certificate file, alternative to a client secret")
	flags.String("pfx-pass", "", "password of the PFX certificate file")
	flags.String("cloud", config.CloudPublic, "national cloud: public, usgov or china")
	flags.String("mailbox-template", "", "mailbox address template with one integer placeholder, e.g. user%d@contoso.com")
	flags.Int("num-mailbox", 0, "number of mailboxes to address")
	flags.Int("start-mailbox", config.DefaultStartMailbox, "first index substituted into the mailbox template")
	flags.Int("batch-size", config.DefaultBatchSize, "requests per batch, at most 20")
	flags.String("transaction-id", "", "transaction id prefix correlating events across runs")
	flags.String("log-level", string(common.LogLevelInfo), "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")

	viper.BindPFlag("auth.tenant_id", flags.Lookup("tenant-id"))
	viper.BindPFlag("auth.client_id", flags.Lookup("client-id"))
	viper.BindPFlag("auth.client_secret", flags.Lookup("client-secret"))
	viper.BindPFlag("auth.pfx", flags.Lookup("pfx"))
	viper.BindPFlag("auth.pfx_pass", flags.Lookup("pfx-pass"))
	viper.BindPFlag("auth.cloud", flags.Lookup("cloud"))
	viper.BindPFlag("mailbox.template", flags.Lookup("mailbox-template"))
	viper.BindPFlag("mailbox.count", flags.Lookup("num-mailbox"))
	viper.BindPFlag("mailbox.start", flags.Lookup("start-mailbox"))
	viper.BindPFlag("batch.size", flags.Lookup("batch-size"))
	viper.BindPFlag("transaction_id", flags.Lookup("transaction-id"))
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	viper.BindPFlag("logging.format", flags.Lookup("log-format"))

	viper.SetEnvPrefix("CALBATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// newOrchestrator loads and validates the configuration, builds the
// authenticated Graph client and wires it into a calendar orchestrator.
// Shared setup path of all three subcommands.
func newOrchestrator() (*config.Settings, *calendar.Orchestrator, error) {
	settings := config.Load(viper.GetViper())
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	if settings.BatchSizeClamped {
		common.Logger.WithField("batch_size", settings.BatchSize).
			Warn("batch size reduced to the Graph batch ceiling")
	}

	common.Logger.WithFields(logrus.Fields{
		"tenant":        settings.TenantID,
		"client_id":     settings.ClientID,
		"client_secret": common.MaskSecret(settings.ClientSecret),
		"cloud":         settings.Cloud,
		"mailboxes":     settings.NumMailbox,
		"batch_size":    settings.BatchSize,
	}).Info("initializing graph client")

	client, err := graph.NewClient(graph.Config{
		TenantID:     settings.TenantID,
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		PfxPath:      settings.PfxPath,
		PfxPassword:  settings.PfxPassword,
		Cloud:        settings.Cloud,
	})
	if err != nil {
		return nil, nil, err
	}

	orchestrator, err := calendar.NewOrchestrator(client, client, calendar.Options{
		BatchSize: settings.BatchSize,
		Pace:      rate.NewLimiter(rate.Every(batchPace), 1),
	})
	if err != nil {
		return nil, nil, err
	}
	return settings, orchestrator, nil
}

// signalContext derives a context that is cancelled on SIGINT or SIGTERM, so
// a running operation stops at the next batch boundary instead of leaving
// the process mid-submission.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
