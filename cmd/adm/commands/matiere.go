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

// MatiereCommands returns the subject management commands
func MatiereCommands(matiereService services.MatiereServiceInterface, logger *observability.Logger) *cobra.Command {
	matiereCmd := &cobra.Command{
		Use:   "matiere",
		Short: "Subject management commands",
	}

	matiereCmd.AddCommand(matiereListCmd(matiereService))
	matiereCmd.AddCommand(matiereCreateCmd(matiereService))
	matiereCmd.AddCommand(matiereSetGranularityCmd(matiereService))

	return matiereCmd
}

func matiereListCmd(matiereService services.MatiereServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all subjects",
		RunE: func(_ *cobra.Command, _ []string) error {
			matieres, err := matiereService.ListMatieres(context.Background())
			if err != nil {
				return contextutils.WrapError(err, "failed to list matieres")
			}
			if len(matieres) == 0 {
				fmt.Println("No subjects found.")
				return nil
			}

			fmt.Printf("%-5s %-20s %-12s %s\n", "ID", "Name", "Granularite", "Description")
			fmt.Println(strings.Repeat("-", 70))
			for _, m := range matieres {
				fmt.Printf("%-5d %-20s %-12s %s\n", m.ID, m.Name, m.Granularite, m.Description.String)
			}
			return nil
		},
	}
}

func matiereCreateCmd(matiereService services.MatiereServiceInterface) *cobra.Command {
	var description, granularite string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			matiere, err := matiereService.CreateMatiere(context.Background(), args[0], description, granularite)
			if err != nil {
				return contextutils.WrapError(err, "failed to create matiere")
			}
			fmt.Printf("Created subject %q with granularity %s\n", matiere.Name, matiere.Granularite)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "subject description")
	cmd.Flags().StringVar(&granularite, "granularite", "", "scheduling granularity (jour|semaine|mois|<N>jours)")
	return cmd
}

func matiereSetGranularityCmd(matiereService services.MatiereServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "set-granularity <name> <granularite>",
		Short: "Change a subject's scheduling granularity",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := matiereService.SetGranularity(context.Background(), args[0], args[1]); err != nil {
				return contextutils.WrapError(err, "failed to set granularity")
			}
			fmt.Printf("Granularity for %q set to %s\n", args[0], args[1])
			return nil
		},
	}
}
