// Package queue is SQS messaging expressed through the federation
// executor: every call runs under a cached session and inherits the
// refresh-and-retry-once policy on credential expiry. It carries no
// retry or backoff logic of its own.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/chukul/fedctl/federation"
)

// api is the subset of the SQS client the package uses.
type api interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// Message is a received queue message.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	Attributes    map[string]string
}

// Client performs queue operations for one identity against one queue.
// It is safe for concurrent use; the underlying session is shared
// through the cache.
type Client struct {
	cache    *federation.Cache
	identity string
	req      federation.ExchangeRequest
	queueURL string
	logger   *slog.Logger

	// newAPI builds the SQS client from a session handle. Tests replace it.
	newAPI func(cfg aws.Config) api
}

// New returns a queue client bound to identity and queueURL, drawing
// sessions from cache using req.
func New(cache *federation.Cache, identity string, req federation.ExchangeRequest, queueURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cache:    cache,
		identity: identity,
		req:      req,
		queueURL: queueURL,
		logger:   logger,
		newAPI: func(cfg aws.Config) api {
			return sqs.NewFromConfig(cfg)
		},
	}
}

// Send publishes body to the queue and returns the message ID.
func (c *Client) Send(ctx context.Context, body string) (string, error) {
	return federation.Execute(ctx, c.cache, c.identity, c.req, func(ctx context.Context, s *federation.Session) (string, error) {
		out, err := c.newAPI(s.Config()).SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(c.queueURL),
			MessageBody: aws.String(body),
		})
		if err != nil {
			return "", fmt.Errorf("send message: %w", err)
		}
		c.logger.Debug("sent message", slog.String("queue", c.queueURL), slog.String("id", aws.ToString(out.MessageId)))
		return aws.ToString(out.MessageId), nil
	})
}

// Receive fetches up to max messages, long-polling for wait.
func (c *Client) Receive(ctx context.Context, max int32, wait time.Duration) ([]Message, error) {
	return federation.Execute(ctx, c.cache, c.identity, c.req, func(ctx context.Context, s *federation.Session) ([]Message, error) {
		out, err := c.newAPI(s.Config()).ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.queueURL),
			MaxNumberOfMessages:   max,
			WaitTimeSeconds:       int32(wait / time.Second),
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameAll,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("receive messages: %w", err)
		}

		msgs := make([]Message, 0, len(out.Messages))
		for _, m := range out.Messages {
			msgs = append(msgs, Message{
				ID:            aws.ToString(m.MessageId),
				Body:          aws.ToString(m.Body),
				ReceiptHandle: aws.ToString(m.ReceiptHandle),
				Attributes:    m.Attributes,
			})
		}
		return msgs, nil
	})
}

// Delete removes a message by receipt handle.
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	return federation.Do(ctx, c.cache, c.identity, c.req, func(ctx context.Context, s *federation.Session) error {
		_, err := c.newAPI(s.Config()).DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: aws.String(receiptHandle),
		})
		if err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
		return nil
	})
}

// ChangeVisibility extends or shortens a message's visibility timeout.
func (c *Client) ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	return federation.Do(ctx, c.cache, c.identity, c.req, func(ctx context.Context, s *federation.Session) error {
		_, err := c.newAPI(s.Config()).ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(c.queueURL),
			ReceiptHandle:     aws.String(receiptHandle),
			VisibilityTimeout: int32(timeout / time.Second),
		})
		if err != nil {
			return fmt.Errorf("change message visibility: %w", err)
		}
		return nil
	})
}

// Attributes returns the queue's attributes. Used by the connectivity
// check to prove the exchanged session can actually reach the queue.
func (c *Client) Attributes(ctx context.Context) (map[string]string, error) {
	return federation.Execute(ctx, c.cache, c.identity, c.req, func(ctx context.Context, s *federation.Session) (map[string]string, error) {
		out, err := c.newAPI(s.Config()).GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(c.queueURL),
			AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameAll},
		})
		if err != nil {
			return nil, fmt.Errorf("get queue attributes: %w", err)
		}
		return out.Attributes, nil
	})
}
