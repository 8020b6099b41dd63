package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	root := &cobra.Command{Use: "fintord", Short: "Fintor retrieval daemon and CLI"}
	root.AddCommand(ServeCmd())
	root.AddCommand(SearchCmd())

	schema := GenerateSchema(root)

	assert.Equal(t, "fintord", schema.Name)
	require.Len(t, schema.Subcommands, 2)

	names := []string{schema.Subcommands[0].Name, schema.Subcommands[1].Name}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "search")

	for _, sub := range schema.Subcommands {
		if sub.Name != "search" {
			continue
		}
		var flagNames []string
		for _, f := range sub.Flags {
			flagNames = append(flagNames, f.Name)
		}
		assert.Contains(t, flagNames, "limit")
		assert.Contains(t, flagNames, "threshold")
		assert.Contains(t, flagNames, "financial")
	}
}

func TestGenerateSchema_SkipsHelpFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	AddHelpJSONFlag(cmd)
	cmd.Flags().String("real", "", "a real flag")
	cmd.InitDefaultHelpFlag()

	schema := GenerateSchema(cmd)

	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "real", schema.Flags[0].Name)
}

func TestFindTargetCommand(t *testing.T) {
	root := &cobra.Command{Use: "fintord"}
	serve := ServeCmd()
	root.AddCommand(serve)

	assert.Equal(t, serve, findTargetCommand(root, []string{"serve"}))
	assert.Equal(t, root, findTargetCommand(root, []string{"unknown"}))
	assert.Equal(t, root, findTargetCommand(root, nil))
}
