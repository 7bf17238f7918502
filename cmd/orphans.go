package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anoixa/image-store/config"
	"github.com/anoixa/image-store/internal/app"
)

// errProcessLedger 内存账本只存在于服务进程内，CLI 新建的容器看不到
var errProcessLedger = errors.New("ledger_type=memory is per-process; set ledger_type=redis to inspect or reconcile the ledger from the CLI")

// requireSharedLedger CLI 只能操作共享账本
func requireSharedLedger(cfg *config.Config) error {
	if cfg.LedgerType != "redis" {
		return errProcessLedger
	}
	return nil
}

// newLedgerContainer 校验账本类型后创建容器
func newLedgerContainer(ctx context.Context) (*app.Container, error) {
	config.InitConfig(viper.GetString("config_file_path"))
	if err := requireSharedLedger(config.Get()); err != nil {
		return nil, err
	}
	return newContainer(ctx)
}

// orphansCmd 孤儿对象与悬挂元数据
var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Inspect and repair inconsistencies between the object and metadata stores",
}

var orphansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded orphan objects and dangling metadata",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		if err := runOrphansList(cmd.Context(), limit); err != nil {
			log.Fatalf("Failed to list ledger: %v", err)
		}
	},
}

var orphansReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass over the ledger",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runOrphansReconcile(cmd.Context()); err != nil {
			log.Fatalf("Reconciliation failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(orphansCmd)
	orphansCmd.AddCommand(orphansListCmd)
	orphansCmd.AddCommand(orphansReconcileCmd)

	orphansListCmd.Flags().Int("limit", 100, "Maximum number of entries to print (0 for all)")
}

func runOrphansList(ctx context.Context, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := newLedgerContainer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	entries, err := container.Ledger().List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tIMAGE ID\tSTORAGE KEY\tATTEMPTS\tRECORDED AT\tREASON")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Kind, e.ImageID, e.StorageKey, e.Attempts, e.RecordedAt.Format(time.RFC3339), e.Reason)
	}
	return w.Flush()
}

func runOrphansReconcile(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := newLedgerContainer(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	report, err := container.Reconciler().RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Scanned:  %d\n", report.Scanned)
	fmt.Printf("Resolved: %d\n", report.Resolved)
	fmt.Printf("Repaired: %d\n", report.Repaired)
	fmt.Printf("Failed:   %d\n", report.Failed)
	return nil
}
