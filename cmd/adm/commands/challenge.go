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

// ChallengeCommands returns the challenge catalog commands
func ChallengeCommands(challengeService services.ChallengeServiceInterface, logger *observability.Logger) *cobra.Command {
	challengeCmd := &cobra.Command{
		Use:   "challenge",
		Short: "Challenge catalog commands",
	}

	challengeCmd.AddCommand(challengeCreateCmd(challengeService))
	challengeCmd.AddCommand(challengeListCmd(challengeService))
	challengeCmd.AddCommand(challengeBackfillRefsCmd(challengeService))

	return challengeCmd
}

func challengeCreateCmd(challengeService services.ChallengeServiceInterface) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "create <matiere> <question>",
		Short: "Author a new challenge",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			challenge, err := challengeService.CreateChallenge(context.Background(), args[0], args[1], date)
			if err != nil {
				return contextutils.WrapError(err, "failed to create challenge")
			}
			fmt.Printf("Created challenge %s\n", challenge.Ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "authoring date (e.g. 2024-01-15); decides rotation order")
	if err := cmd.MarkFlagRequired("date"); err != nil {
		panic(err)
	}
	return cmd
}

func challengeListCmd(challengeService services.ChallengeServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "list <matiere>",
		Short: "List the catalog for a subject in rotation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			challenges, err := challengeService.ListChallenges(context.Background(), args[0])
			if err != nil {
				return contextutils.WrapError(err, "failed to list challenges")
			}
			if len(challenges) == 0 {
				fmt.Printf("No challenges for %q.\n", args[0])
				return nil
			}

			fmt.Printf("%-5s %-12s %-12s %s\n", "ID", "Ref", "Date", "Question")
			fmt.Println(strings.Repeat("-", 80))
			for _, c := range challenges {
				fmt.Printf("%-5d %-12s %-12s %s\n", c.ID, c.Ref, c.Date, c.Question)
			}
			return nil
		},
	}
}

func challengeBackfillRefsCmd(challengeService services.ChallengeServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-refs",
		Short: "Assign refs to challenges imported without one",
		RunE: func(_ *cobra.Command, _ []string) error {
			updated, err := challengeService.BackfillRefs(context.Background())
			if err != nil {
				return contextutils.WrapError(err, "failed to backfill refs")
			}
			fmt.Printf("Backfilled %d challenge ref(s)\n", updated)
			return nil
		},
	}
}
