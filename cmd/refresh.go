package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/config"
	"github.com/chukul/fedctl/internal/store"
)

var (
	refreshSecret string
	refreshAll    bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [identity]",
	Short: "Re-exchange tokens for stored sessions",
	Long: `Re-exchanges the web identity token for the named identity (or all stored
identities with --all) and replaces the stored session.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		secret, err := resolveSecret(refreshSecret)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var names []string
		if refreshAll {
			records, err := store.List(secret)
			if err != nil {
				log.Fatalf("Failed to list sessions: %v", err)
			}
			for _, r := range records {
				names = append(names, r.Identity)
			}
			if len(names) == 0 {
				fmt.Println("No stored sessions to refresh.")
				return
			}
		} else {
			if len(args) != 1 {
				fmt.Fprintln(os.Stderr, "❌ Specify an identity or use --all")
				os.Exit(1)
			}
			names = args
		}

		cache := newCache()
		failed := 0
		for _, name := range names {
			id, err := cfg.Identity(name)
			if err != nil {
				fmt.Printf("❌ %s: %v\n", name, err)
				failed++
				continue
			}

			rec, err := mintSession(context.Background(), cache, name, id)
			if err != nil {
				fmt.Printf("❌ %s: %v\n", name, err)
				failed++
				continue
			}

			if err := store.Save(rec, secret); err != nil {
				fmt.Printf("❌ %s: failed to save: %v\n", name, err)
				failed++
				continue
			}

			fmt.Printf("✅ Refreshed %s (expires %s)\n", name, rec.Expiration.Format("15:04:05 MST"))
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshSecret, "secret", "", "Secret key for decryption")
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every stored session")
	rootCmd.AddCommand(refreshCmd)
}
