package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fintor-ai/fintor/internal/domain"
	"github.com/fintor-ai/fintor/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [content]",
		Short: "Chunk, embed, and store a piece of knowledge",
		Long:  "Chunk, embed, and store a piece of knowledge. Content is read from the argument, or from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("user", "u", "", "Owning user id (empty stores globally visible knowledge)")
	cmd.Flags().StringP("entity-type", "t", string(domain.EntityTypePersonalKnowledge), "Knowledge pool")
	cmd.Flags().String("entity-id", "", "Parent entity id (generated when omitted)")
	cmd.Flags().String("category", "", "Category metadata tag")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	content, err := readContent(args)
	if err != nil {
		return err
	}

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
	entityType, _ := cmd.Flags().GetString("entity-type")
	entityID, _ := cmd.Flags().GetString("entity-id")
	category, _ := cmd.Flags().GetString("category")

	if entityID == "" {
		entityID = (&service.DefaultUUIDGenerator{}).NewString()
	}

	var metadata map[string]any
	if category != "" {
		metadata = map[string]any{"category": category}
	}

	out, err := svc.AddKnowledge(ctx, service.AddKnowledgeInput{
		EntityType: domain.EntityType(entityType),
		EntityID:   entityID,
		Content:    content,
		UserID:     userID,
		Metadata:   metadata,
	})
	if err != nil {
		return err
	}

	fmt.Printf("stored %d chunk(s) under entity %s\n", out.EmbeddingsCount, entityID)
	return nil
}

func readContent(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("no content provided")
	}
	return content, nil
}
