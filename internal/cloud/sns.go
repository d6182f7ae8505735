package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
)

// SNSClient publishes analysis alerts to an SNS topic.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}, nil
}

func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	if c.topicArn == "" {
		log.Warn().Msg("SNS topic not configured, skipping notification")
		return nil
	}

	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Info().Str("message_id", aws.ToString(result.MessageId)).Msg("alert published")
	return nil
}

// SendCostAnomalyAlert notifies about a high-severity cost anomaly.
func (c *SNSClient) SendCostAnomalyAlert(ctx context.Context, meterID int64, actual, expected, deviation float64, rootCause string) error {
	subject := fmt.Sprintf("Energy Dashboard Alert: Cost Anomaly on meter %d", meterID)
	message := fmt.Sprintf(
		"Cost Anomaly Detected\n\n"+
			"Meter: %d\n"+
			"Actual Cost: $%.2f\n"+
			"Expected Cost: $%.2f\n"+
			"Deviation: %.2f sigma\n"+
			"Likely Cause: %s\n"+
			"Time: %s\n\n"+
			"Please investigate.",
		meterID,
		actual,
		expected,
		deviation,
		rootCause,
		time.Now().UTC().Format(time.RFC3339),
	)

	return c.SendAlert(ctx, subject, message)
}

// SendDemandAlert notifies about a critical demand condition.
func (c *SNSClient) SendDemandAlert(ctx context.Context, meterID int64, current, peak float64, detail string) error {
	subject := fmt.Sprintf("Energy Dashboard Alert: Demand Warning on meter %d", meterID)
	message := fmt.Sprintf(
		"Demand Alert\n\n"+
			"Meter: %d\n"+
			"Current Demand: %.2f kW\n"+
			"30-day Peak: %.2f kW\n"+
			"Detail: %s\n"+
			"Time: %s",
		meterID,
		current,
		peak,
		detail,
		time.Now().UTC().Format(time.RFC3339),
	)

	return c.SendAlert(ctx, subject, message)
}
