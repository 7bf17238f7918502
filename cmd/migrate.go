package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply metadata schema migrations",
	Long: `Apply the embedded goose migrations to the configured SQL metadata store.
The badger store has no schema and the command is a no-op for it.

Examples:
  # Apply pending migrations
  image-store migrate --config ./.env

  # Print the current schema version
  image-store migrate --status`,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetBool("status")
		if err := runMigrate(cmd.Context(), status); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Only print the current schema version")
}

func runMigrate(ctx context.Context, statusOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	if !container.GetConfig().IsSQL() {
		fmt.Println("Metadata store is badger; nothing to migrate.")
		return nil
	}

	if !statusOnly {
		if err := container.Migrate(ctx); err != nil {
			return err
		}
	}

	version, err := container.MigrationVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Schema version: %d\n", version)
	return nil
}
