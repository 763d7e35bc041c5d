package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// sqsAPI is the slice of the SQS client the sender calls.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender sends to an SQS queue. Group and deduplication ids are only
// accepted by FIFO queues (URL ending in .fifo) and are dropped otherwise.
type SQSSender struct {
	client sqsAPI
}

// NewSQSSender builds a client from cfg. Static credentials are used when
// given, otherwise the default AWS credential chain.
func NewSQSSender(ctx context.Context, cfg Config) (*SQSSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &SQSSender{client: client}, nil
}

// Backend implements Sender.
func (s *SQSSender) Backend() string { return BackendSQS }

// Send implements Sender and returns the SQS-assigned MessageId.
func (s *SQSSender) Send(ctx context.Context, msg Message) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(msg.Target),
		MessageBody: aws.String(string(msg.Body)),
	}
	if strings.HasSuffix(msg.Target, ".fifo") {
		input.MessageGroupId = aws.String(msg.GroupID)
		input.MessageDeduplicationId = aws.String(msg.DeduplicationID)
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sending message to sqs: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
