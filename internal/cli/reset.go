package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fintor-ai/fintor/internal/repository"
)

// ResetCmd returns the reset command
func ResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored knowledge chunk",
		Long:  "Delete every stored knowledge chunk. Intended for environment reset only.",
		RunE:  runReset,
	}

	cmd.Flags().Bool("yes", false, "Confirm the destructive reset")

	return cmd
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to clear the knowledge store without --yes")
	}

	ctx := context.Background()

	_, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := repository.NewChunkRepository(pool)
	if err := repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear knowledge store: %w", err)
	}

	fmt.Println("knowledge store cleared")
	return nil
}
