package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	contextutils "challengeapp/internal/utils"
)

// LedgerCommands returns the rotation ledger commands
func LedgerCommands(ledgerService services.LedgerServiceInterface, logger *observability.Logger) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Rotation ledger commands",
	}

	ledgerCmd.AddCommand(ledgerShowCmd(ledgerService))
	ledgerCmd.AddCommand(ledgerResetCmd(ledgerService))

	return ledgerCmd
}

func ledgerShowCmd(ledgerService services.LedgerServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "show <matiere> <granularite>",
		Short: "Show the served-challenge history for a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			entries, err := ledgerService.History(context.Background(), args[0], args[1])
			if err != nil {
				return contextutils.WrapError(err, "failed to read ledger")
			}
			if len(entries) == 0 {
				fmt.Printf("No ledger entries for %s/%s.\n", args[0], args[1])
				return nil
			}

			fmt.Printf("%-8s %-12s %s\n", "Tick", "Ref", "Granularite")
			fmt.Println(strings.Repeat("-", 40))
			for _, e := range entries {
				fmt.Printf("%-8d %-12s %s\n", e.Tick, e.ChallengeRef, e.Granularite)
			}
			return nil
		},
	}
}

func ledgerResetCmd(ledgerService services.LedgerServiceInterface) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset <matiere> <granularite>",
		Short: "Delete the rotation history for a subject",
		Long:  "Delete the rotation history for a subject and granularity. The next selection starts a fresh cycle from the top of the catalog.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if !force && !confirm(fmt.Sprintf("Delete the rotation history for %s/%s?", args[0], args[1])) {
				fmt.Println("Aborted.")
				return nil
			}
			if err := ledgerService.Reset(context.Background(), args[0], args[1]); err != nil {
				return contextutils.WrapError(err, "failed to reset ledger")
			}
			fmt.Printf("Ledger reset for %s/%s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}
