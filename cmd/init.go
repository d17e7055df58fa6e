package cmd

import (
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/config"
	"github.com/chukul/fedctl/internal/store"
	"github.com/chukul/fedctl/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file interactively",
	Long: `Walks you through configuring your first federated identity: the IAM role
to assume, the web identity token file and the target region.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("🚀 Let's set up fedctl.")
		fmt.Println()

		region, err := ui.GetInput("Default AWS region", "us-east-1", false)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		name, err := ui.GetInput("Identity name", "default", false)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		roleARN, err := ui.GetInput("IAM role ARN to assume", "arn:aws:iam::123456789012:role/my-role", false)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if !strings.HasPrefix(roleARN, "arn:") {
			log.Fatalf("Error: '%s' does not look like a role ARN", roleARN)
		}

		tokenFile, err := ui.GetInput("Web identity token file", "/var/run/secrets/tokens/token", false)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		queueURL, err := ui.GetInput("SQS queue URL (optional, leave blank to skip)", "", false)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		cfg := &config.Config{
			DefaultRegion: region,
			Identities: map[string]config.Identity{
				name: {
					RoleARN:   roleARN,
					TokenFile: tokenFile,
					QueueURL:  queueURL,
				},
			},
		}

		if err := config.Save(cfg); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Println("✅ Config written to ~/.fedctl/config.toml")

		if runtime.GOOS == "darwin" {
			answer, err := ui.GetInput("Generate a store encryption key in the macOS keychain? (y/n)", "y", false)
			if err == nil && strings.EqualFold(answer, "y") {
				if _, err := store.SetupKeychain(); err != nil {
					fmt.Printf("❌ Keychain setup failed: %v\n", err)
				} else {
					fmt.Println("✅ Encryption key stored in keychain.")
				}
			}
		} else {
			fmt.Println("💡 Set FEDCTL_SECRET (32+ characters) to encrypt stored sessions.")
		}

		fmt.Println()
		fmt.Printf("Try it: fedctl mint %s\n", name)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
