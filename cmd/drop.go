package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/store"
)

var dropAll bool

var dropCmd = &cobra.Command{
	Use:   "drop [identity]",
	Short: "Remove a stored session (or all of them with --all)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if dropAll {
			if err := store.Clear(); err != nil {
				log.Fatalf("Failed to clear sessions: %v", err)
			}
			fmt.Println("✅ All stored sessions removed.")
			return
		}

		if len(args) != 1 {
			log.Fatalf("Specify an identity or use --all")
		}
		name := args[0]

		if err := store.Remove(name); err != nil {
			log.Fatalf("Failed to remove session: %v", err)
		}
		fmt.Printf("✅ Session for %s removed.\n", name)
	},
}

func init() {
	dropCmd.Flags().BoolVar(&dropAll, "all", false, "Remove every stored session")
	rootCmd.AddCommand(dropCmd)
}
