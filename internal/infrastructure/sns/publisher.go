package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gatekeeper-api/internal/config"
)

// Publisher wraps the SNS client used for audit events, raid alerts and grant
// commands. The platform-side worker subscribes to the topics and performs the
// actual chat-platform side effects.
type Publisher struct {
	client *sns.Client
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}

	return &Publisher{client: sns.NewFromConfig(awsCfg, clientOpts...)}, nil
}

// PublishJSON marshals v and publishes it to the topic. An empty topic ARN
// (unconfigured environment) downgrades to a debug log instead of an error so
// local development works without SNS.
func (p *Publisher) PublishJSON(ctx context.Context, topicARN, subject string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", subject, err)
	}
	if topicARN == "" {
		slog.Debug("sns topic not configured, dropping message", "subject", subject, "body", string(body))
		return nil
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	return err
}
