// Package config provides configuration management for the calbatch tool.
//
// Configuration is collected from command-line flags and CALBATCH_* environment
// variables through viper, decoded into a typed Settings struct, and validated
// exactly once before any network activity. Validation normalizes values with
// hard remote-system ceilings (the Graph batch endpoint accepts at most 20
// requests per batch) by clamping deterministically and recording that the
// clamp happened, instead of silently discarding the computation.
//
// # Configuration Keys
//
// Viper keys use dotted notation; environment variables replace dots with
// underscores and carry the CALBATCH_ prefix:
//
//	auth.tenant_id      CALBATCH_AUTH_TENANT_ID      --tenant-id
//	auth.client_id      CALBATCH_AUTH_CLIENT_ID      --client-id
//	auth.client_secret  CALBATCH_AUTH_CLIENT_SECRET  --client-secret
//	auth.pfx            CALBATCH_AUTH_PFX            --pfx
//	auth.pfx_pass       CALBATCH_AUTH_PFX_PASS       --pfx-pass
//	auth.cloud          CALBATCH_AUTH_CLOUD          --cloud
//	mailbox.template    CALBATCH_MAILBOX_TEMPLATE    --mailbox-template
//	mailbox.count       CALBATCH_MAILBOX_COUNT       --num-mailbox
//	mailbox.start       CALBATCH_MAILBOX_START       --start-mailbox
//	batch.size          CALBATCH_BATCH_SIZE          --batch-size
//	transaction_id      CALBATCH_TRANSACTION_ID      --transaction-id
//	logging.level       CALBATCH_LOGGING_LEVEL       --log-level
//	logging.format      CALBATCH_LOGGING_FORMAT      --log-format
package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/viper"

	"calbatch.evalgo.org/calendar"
)

const (
	// DefaultBatchSize is the batch size used when none is configured. It
	// matches the Graph batch endpoint ceiling so default runs use the
	// largest batches the remote system accepts.
	DefaultBatchSize = calendar.MaxBatchSize

	// DefaultTenant is the multi-tenant sentinel accepted by Azure AD when
	// no specific tenant is configured.
	DefaultTenant = "organizations"

	// DefaultStartMailbox is the first index substituted into the mailbox
	// template when none is configured.
	DefaultStartMailbox = 1
)

// Cloud region identifiers accepted by the --cloud flag.
const (
	CloudPublic = "public"
	CloudUSGov  = "usgov"
	CloudChina  = "china"
)

// integer format verbs such as %d, %3d, %03d
var intVerb = regexp.MustCompile(`%0?[0-9]*d`)

// Settings holds the complete, validated configuration for one calbatch
// invocation. A zero Settings is not usable; build one through Load and
// call Validate before use.
type Settings struct {
	// Authentication
	TenantID     string
	ClientID     string
	ClientSecret string
	PfxPath      string
	PfxPassword  string
	Cloud        string

	// Mailbox fan-out
	MailboxTemplate string
	NumMailbox      int
	StartMailbox    int

	// Batching
	BatchSize        int
	BatchSizeClamped bool // set by Validate when BatchSize exceeded MaxBatchSize

	// Correlation
	TransactionID string
}

// Load decodes Settings from a viper instance. Flag and environment binding
// is owned by the cli package; Load only reads the resolved values.
func Load(v *viper.Viper) *Settings {
	return &Settings{
		TenantID:        v.GetString("auth.tenant_id"),
		ClientID:        v.GetString("auth.client_id"),
		ClientSecret:    v.GetString("auth.client_secret"),
		PfxPath:         v.GetString("auth.pfx"),
		PfxPassword:     v.GetString("auth.pfx_pass"),
		Cloud:           v.GetString("auth.cloud"),
		MailboxTemplate: v.GetString("mailbox.template"),
		NumMailbox:      v.GetInt("mailbox.count"),
		StartMailbox:    v.GetInt("mailbox.start"),
		BatchSize:       v.GetInt("batch.size"),
		TransactionID:   v.GetString("transaction_id"),
	}
}

// Validate checks required values and normalizes bounded ones. It is called
// once, before any network activity; a non-nil error is fatal for the
// invocation.
//
// Normalization rules:
//   - empty TenantID falls back to the multi-tenant sentinel
//   - empty Cloud falls back to the public cloud
//   - BatchSize above MaxBatchSize is clamped to MaxBatchSize and
//     BatchSizeClamped is set so the caller can log the adjustment
//   - BatchSize below 1 is a configuration error, not a clamp
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return errors.New("client id is required (--client-id or CALBATCH_AUTH_CLIENT_ID)")
	}
	if s.ClientSecret == "" && s.PfxPath == "" {
		return errors.New("either a client secret (--client-secret) or a PFX certificate (--pfx) is required")
	}
	if s.TenantID == "" {
		s.TenantID = DefaultTenant
	}

	switch s.Cloud {
	case "":
		s.Cloud = CloudPublic
	case CloudPublic, CloudUSGov, CloudChina:
	default:
		return fmt.Errorf("unknown cloud %q (expected %s, %s or %s)", s.Cloud, CloudPublic, CloudUSGov, CloudChina)
	}

	if s.MailboxTemplate == "" {
		return errors.New("mailbox template is required (--mailbox-template)")
	}
	if n := len(intVerb.FindAllString(s.MailboxTemplate, -1)); n != 1 {
		return fmt.Errorf("mailbox template %q must contain exactly one integer placeholder such as %%d, found %d", s.MailboxTemplate, n)
	}
	if s.NumMailbox < 1 {
		return fmt.Errorf("number of mailboxes must be at least 1, got %d", s.NumMailbox)
	}
	if s.StartMailbox < 1 {
		s.StartMailbox = DefaultStartMailbox
	}

	if s.BatchSize == 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", s.BatchSize)
	}
	if s.BatchSize > calendar.MaxBatchSize {
		s.BatchSize = calendar.MaxBatchSize
		s.BatchSizeClamped = true
	}

	return nil
}

// Mailboxes expands the mailbox template into the list of addressed
// mailboxes, substituting StartMailbox..StartMailbox+NumMailbox-1 into the
// template's integer placeholder. Call Validate first.
func (s *Settings) Mailboxes() []string {
	mailboxes := make([]string, 0, s.NumMailbox)
	for i := 0; i < s.NumMailbox; i++ {
		mailboxes = append(mailboxes, fmt.Sprintf(s.MailboxTemplate, s.StartMailbox+i))
	}
	return mailboxes
}
