// Package main is the entry point for the calbatch command-line tool.
//
// calbatch bulk-creates, queries, and deletes calendar events across many
// Exchange Online mailboxes through the Microsoft Graph API. All per-mailbox
// requests are submitted through the Graph JSON batch endpoint to keep the
// number of network round-trips low, which matters when a run addresses
// hundreds of mailboxes.
//
// The binary exposes three subcommands:
//
//	calbatch create-events  --mailbox-template "loaduser%d@example.com" --num-mailbox 50
//	calbatch get-events     --mailbox-template "loaduser%d@example.com" --num-mailbox 50
//	calbatch delete-events  --mailbox-template "loaduser%d@example.com" --num-mailbox 50
//
// Authentication uses Azure AD application permissions via a client secret or
// a PFX certificate. Configuration can be provided through command-line flags
// or CALBATCH_* environment variables.
//
// Exit Codes:
//   - 0: command completed (per-item remote failures are logged, not fatal)
//   - 1: argument/configuration error or a fatal batch transport failure
package main

import (
	"os"

	"calbatch.evalgo.org/cli"
	"calbatch.evalgo.org/common"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		common.Logger.Error(err)
		os.Exit(1)
	}
}
