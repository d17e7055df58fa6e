package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chukul/fedctl/federation"
	"github.com/chukul/fedctl/internal/ui"
	"github.com/chukul/fedctl/queue"
)

var checkCmd = &cobra.Command{
	Use:   "check <identity>",
	Short: "Verify an identity can exchange tokens and reach AWS",
	Long: `Exchanges the identity's web token and calls STS GetCallerIdentity with the
resulting session. If a queue URL is configured the queue is probed too.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		id, err := loadIdentity(name)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		cache := newCache()
		req := id.ExchangeRequest()

		type result struct {
			arn       string
			queueMsgs string
		}

		res, err := ui.Spin(fmt.Sprintf("Checking %s", name), func() (result, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var out result
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				ident, err := federation.Execute(ctx, cache, name, req,
					func(ctx context.Context, s *federation.Session) (*sts.GetCallerIdentityOutput, error) {
						return sts.NewFromConfig(s.Config()).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
					})
				if err != nil {
					return fmt.Errorf("caller identity: %w", err)
				}
				if ident.Arn != nil {
					out.arn = *ident.Arn
				}
				return nil
			})

			if id.QueueURL != "" {
				g.Go(func() error {
					q := queue.New(cache, name, req, id.QueueURL, slog.Default())
					attrs, err := q.Attributes(ctx)
					if err != nil {
						return fmt.Errorf("queue: %w", err)
					}
					out.queueMsgs = attrs["ApproximateNumberOfMessages"]
					return nil
				})
			}

			return out, g.Wait()
		})
		if err != nil {
			log.Fatalf("❌ Check failed: %v", err)
		}

		fmt.Printf("✅ Token exchange OK\n")
		fmt.Printf("   Caller: %s\n", res.arn)
		if id.QueueURL != "" {
			fmt.Printf("✅ Queue reachable (%s messages)\n", res.queueMsgs)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
