package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comicscan",
		Short: "Comic photo identification with human-confirmed cataloging",
		Long: `Comicscan turns photographs of physical comic books into verified catalog
records. A remote classifier proposes ranked candidates; nothing is ever
persisted without an explicit confirmation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIdentifyCmd())

	return cmd
}
