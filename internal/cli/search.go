package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fintor-ai/fintor/internal/domain"
	"github.com/fintor-ai/fintor/internal/service"
)

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a relevance query against the knowledge store",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().StringP("user", "u", "", "Caller user id")
	cmd.Flags().IntP("limit", "l", service.DefaultSearchLimit, "Maximum results")
	cmd.Flags().Float64P("threshold", "T", service.DefaultSearchThreshold, "Minimum similarity")
	cmd.Flags().StringSliceP("entity-type", "t", nil, "Restrict to knowledge pools")
	cmd.Flags().Bool("financial", false, "Run the combined multi-pool financial query")
	cmd.Flags().String("category", "", "Category filter for the general pool (combined query only)")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	cfg, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc, err := newRetrievalService(cfg, pool)
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	financial, _ := cmd.Flags().GetBool("financial")
	category, _ := cmd.Flags().GetString("category")
	entityTypes, _ := cmd.Flags().GetStringSlice("entity-type")

	var results []domain.SearchResult
	if financial {
		if userID == "" {
			return fmt.Errorf("--user is required for the combined financial query")
		}
		results, err = svc.SearchAllFinancialKnowledge(ctx, service.CombinedSearchInput{
			Query:         query,
			UserID:        userID,
			PersonalLimit: limit,
			GoalsLimit:    limit,
			GeneralLimit:  limit,
			Category:      category,
		})
	} else {
		types := make([]domain.EntityType, 0, len(entityTypes))
		for _, t := range entityTypes {
			types = append(types, domain.EntityType(t))
		}
		results, err = svc.Search(ctx, service.SearchInput{
			Query:                 query,
			EntityTypes:           types,
			UserID:                userID,
			IncludeUserContent:    userID != "",
			IncludeGeneralContent: true,
			Limit:                 limit,
			Threshold:             threshold,
		})
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no relevant content found")
		return nil
	}

	for i, res := range results {
		content := strings.ReplaceAll(res.Content, "\n", " ")
		fmt.Printf("%2d. [%.3f] (%s) %s\n", i+1, res.Similarity, res.EntityType, content)
	}
	return nil
}
