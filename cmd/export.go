package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/store"
)

var (
	exportSecret string
	exportJSON   bool
)

// credentialProcessOutput is the schema the AWS CLI/SDKs expect from a
// credential_process helper.
type credentialProcessOutput struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

var exportCmd = &cobra.Command{
	Use:   "export <identity>",
	Short: "Export a stored session as environment variables or credential_process JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		secret, err := resolveSecret(exportSecret)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		rec, err := store.Load(name, secret)
		if err != nil {
			log.Fatalf("Failed to load session for identity '%s': %v", name, err)
		}
		if rec.Expired() {
			log.Fatalf("Session for '%s' expired at %s (run 'fedctl mint %s')",
				name, rec.Expiration.Format(time.RFC3339), name)
		}

		if exportJSON {
			out, _ := json.Marshal(credentialProcessOutput{
				Version:         1,
				AccessKeyID:     rec.AccessKey,
				SecretAccessKey: rec.SecretKey,
				SessionToken:    rec.SessionToken,
				Expiration:      rec.Expiration.Format(time.RFC3339),
			})
			fmt.Println(string(out))
			return
		}

		// Output shell-compatible export commands
		fmt.Printf("export AWS_ACCESS_KEY_ID=%s\n", rec.AccessKey)
		fmt.Printf("export AWS_SECRET_ACCESS_KEY=%s\n", rec.SecretKey)
		fmt.Printf("export AWS_SESSION_TOKEN=%s\n", rec.SessionToken)
		fmt.Printf("export AWS_REGION=%s\n", rec.Region)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSecret, "secret", "", "Secret key for decryption")
	exportCmd.Flags().BoolVar(&exportJSON, "json", false, "Emit credential_process JSON instead of shell exports")
	rootCmd.AddCommand(exportCmd)
}
