package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/store"
	"github.com/chukul/fedctl/internal/ui"
)

var mintSecret string

func init() {
	mintCmd.Flags().StringVar(&mintSecret, "secret", "", "32-byte local encryption key (or FEDCTL_SECRET)")

	rootCmd.AddCommand(mintCmd)
}

var mintCmd = &cobra.Command{
	Use:   "mint <identity>",
	Short: "Exchange the identity's web token for an AWS session and store it encrypted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		id, err := loadIdentity(name)
		if err != nil {
			log.Fatalf("Failed to load identity: %v", err)
		}

		secret, err := resolveSecret(mintSecret)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		cache := newCache()
		rec, err := ui.Spin(fmt.Sprintf("Exchanging token for role %s...", id.RoleARN), func() (*store.Record, error) {
			return mintSession(context.Background(), cache, name, id)
		})
		if err != nil {
			log.Fatalf("Failed to mint session: %v", err)
		}

		if err := store.Save(rec, secret); err != nil {
			log.Fatalf("Failed to save session: %v", err)
		}

		fmt.Printf("✅ Session stored for identity %s (expires %s)\n",
			name, rec.Expiration.Format("2006-01-02 15:04:05 MST"))
	},
}
