package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/airquality"
)

// Job types accepted on the trigger subscription.
const (
	JobRefresh     = "refresh"
	JobHealthCheck = "health_check"
)

var (
	// ErrUnknownJob is returned by Dispatch for an unsupported job type.
	ErrUnknownJob = errors.New("unknown job type")

	// ErrMalformedMessage is returned by Dispatch for an undecodable payload.
	ErrMalformedMessage = errors.New("malformed job message")
)

// Jobs runs the triggered jobs. *Monitor implements it.
type Jobs interface {
	Refresh(ctx context.Context)
	HealthCheck(ctx context.Context) error
}

var _ Jobs = (*Monitor)(nil)

// JobMessage is the payload of a trigger message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// PubSubHandler triggers jobs from Pub/Sub messages.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             Jobs
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Jobs             Jobs
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A cycle is serialized anyway; one message at a time is enough.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             cfg.Jobs,
		logger:           cfg.Logger.With().Str("component", "pubsub").Logger(),
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	jobType, err := Dispatch(ctx, h.jobs, msg.Data)
	switch {
	case err == nil:
	case Retryable(err):
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed, requesting redelivery")
		msg.Nack()
		return
	default:
		logger.Warn().Err(err).Str("job_type", jobType).Msg("job dropped")
		msg.Ack()
		return
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}

// Dispatch decodes a trigger message and runs its job. It returns the job
// type, and ErrUnknownJob for types it does not handle.
func Dispatch(ctx context.Context, jobs Jobs, data []byte) (string, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobRefresh:
		jobs.Refresh(ctx)
		return msg.JobType, nil
	case JobHealthCheck:
		return msg.JobType, jobs.HealthCheck(ctx)
	default:
		return msg.JobType, fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// Retryable reports whether redelivering the message could change the
// outcome of a failed job. Bad payloads, unknown jobs and upstream answers
// that merely report missing data are final.
func Retryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrMalformedMessage),
		errors.Is(err, ErrUnknownJob),
		errors.Is(err, airquality.ErrStationNotFound),
		errors.Is(err, airquality.ErrNoIndex),
		errors.Is(err, airquality.ErrNoMeasurements):
		return false
	}
	return true
}
