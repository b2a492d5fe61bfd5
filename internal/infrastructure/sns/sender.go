// Package sns delivers reminders to mobile devices registered as SNS
// platform endpoints.
package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/tiffin-tracker/internal/config"
	"github.com/tiffin-tracker/internal/domain"
)

// Publisher is the subset of the SNS client the sender uses.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Sender struct {
	client Publisher
}

func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	opts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Sender{client: sns.NewFromConfig(awsCfg, opts...)}, nil
}

func NewSenderWithClient(client Publisher) *Sender {
	return &Sender{client: client}
}

// Deliver publishes payload to the endpoint ARN held in sub.Endpoint.
// A disabled or deleted endpoint is reported as gone.
func (s *Sender) Deliver(ctx context.Context, sub domain.PushSubscription, payload []byte) error {
	msg, err := platformMessage(payload)
	if err != nil {
		return err
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(sub.Endpoint),
		Message:          aws.String(msg),
		MessageStructure: aws.String("json"),
	})
	if err == nil {
		return nil
	}
	var disabled *types.EndpointDisabledException
	var notFound *types.NotFoundException
	if errors.As(err, &disabled) || errors.As(err, &notFound) {
		return fmt.Errorf("sns endpoint: %w", domain.ErrSubscriptionGone)
	}
	return fmt.Errorf("sns publish: %w", err)
}

// platformMessage wraps the reminder for each platform SNS fans out to.
func platformMessage(payload []byte) (string, error) {
	var p domain.ReminderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("decode reminder payload: %w", err)
	}

	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{"title": p.Title, "body": p.Body},
		"data":         map[string]string{"date": p.Data.Date, "time": p.Data.Time, "token": p.Data.Token},
	})
	if err != nil {
		return "", err
	}
	apns, err := json.Marshal(map[string]interface{}{
		"aps":   map[string]interface{}{"alert": map[string]string{"title": p.Title, "body": p.Body}, "category": "TIFFIN_REMINDER"},
		"date":  p.Data.Date,
		"time":  p.Data.Time,
		"token": p.Data.Token,
	})
	if err != nil {
		return "", err
	}

	msg, err := json.Marshal(map[string]string{
		"default":      p.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", err
	}
	return string(msg), nil
}
