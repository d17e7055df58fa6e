package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chukul/fedctl/internal/store"
)

var (
	statusSecret   string
	statusIdentity string
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show all stored sessions with expiration and remaining time",
	Run: func(cmd *cobra.Command, args []string) {
		secret, err := resolveSecret(statusSecret)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		records, err := store.List(secret)
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}

		if statusIdentity != "" {
			filtered := []*store.Record{}
			for _, r := range records {
				if r.Identity == statusIdentity {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}

		if len(records) == 0 {
			fmt.Println("No stored sessions found.")
			return
		}

		// Optional JSON output for automation
		if statusJSON {
			type sessionStatus struct {
				Identity   string    `json:"identity"`
				RoleARN    string    `json:"role_arn"`
				Region     string    `json:"region"`
				Expiration time.Time `json:"expiration"`
				Expired    bool      `json:"expired"`
			}
			out := make([]sessionStatus, 0, len(records))
			for _, r := range records {
				out = append(out, sessionStatus{
					Identity:   r.Identity,
					RoleARN:    r.RoleARN,
					Region:     r.Region,
					Expiration: r.Expiration,
					Expired:    r.Expired(),
				})
			}
			jsonData, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(jsonData))
			return
		}

		header := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%-20s %-50s %-25s %-15s %-10s\n",
			header("IDENTITY"), header("ROLE ARN"), header("EXPIRATION"), header("REMAINING"), header("STATUS"))
		fmt.Println(strings.Repeat("-", 125))

		now := time.Now()
		for _, r := range records {
			status := "ACTIVE"
			statusColor := color.New(color.FgGreen).SprintFunc()

			var remaining string
			if r.Expired() {
				status = "EXPIRED"
				statusColor = color.New(color.FgYellow).SprintFunc()
				remaining = "Expired"
			} else {
				diff := r.Expiration.Sub(now)
				h := int(diff.Hours())
				m := int(diff.Minutes()) % 60
				remaining = fmt.Sprintf("%dh%dm left", h, m)
			}

			exp := r.Expiration.Local().Format("2006-01-02 15:04:05")

			fmt.Printf("%-20s %-50s %-25s %-15s %-10s\n",
				r.Identity,
				truncateText(r.RoleARN, 48),
				exp,
				remaining,
				statusColor(status),
			)
		}
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSecret, "secret", "", "Decryption key used when minting")
	statusCmd.Flags().StringVar(&statusIdentity, "identity", "", "Filter by specific identity")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output results in JSON format for automation")
	rootCmd.AddCommand(statusCmd)
}

func truncateText(text string, max int) string {
	if len(text) > max {
		return text[:max-3] + "..."
	}
	return text
}
