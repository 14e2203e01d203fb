package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/services"
)

var relateCmd = &cobra.Command{
	Use:   "relate <from-id> <to-id>",
	Short: "Create a relationship between two notes",
	Long: `Create a directed relationship in the graph store from one note to another.

Relation types are upper-cased, e.g. --type depends_on becomes DEPENDS_ON.`,
	Args: cobra.ExactArgs(2),
	RunE: runRelate,
}

var relateType string

func init() {
	rootCmd.AddCommand(relateCmd)
	relateCmd.Flags().StringVar(&relateType, "type", constants.RelationRelatedTo, "Relationship type")
}

func runRelate(cmd *cobra.Command, args []string) error {
	fromID, toID := args[0], args[1]
	if err := svc.Notes.Relate(cmd.Context(), fromID, toID, relateType); err != nil {
		return fmt.Errorf("failed to relate notes: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created relationship %s -[%s]-> %s\n", fromID, services.RelationType(relateType), toID)
	return nil
}
