package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmehdipour/wa-bulk-sender/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration // default 5s
}

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits one OutcomeEvent per recorded entry, keyed by run ID so a
// run's events stay ordered within one partition. Failures are logged only;
// publishing never affects the run.
type Publisher struct {
	w       MessageWriter
	log     *zap.Logger
	timeout time.Duration
}

func NewPublisherFromConfig(c Config, log *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewPublisher(w, c.WriteTimeout, log)
}

func NewPublisher(w MessageWriter, timeout time.Duration, log *zap.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{w: w, log: log, timeout: timeout}
}

func (p *Publisher) OnStart(context.Context, *model.SendReport) {}

func (p *Publisher) OnOutcome(ctx context.Context, r *model.SendReport, e model.Entry) {
	ev := model.NewOutcomeEvent(r.RunID, r.Total, e)
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal outcome event", zap.Error(err))
		return
	}

	// published even while the run is being cancelled
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.w.WriteMessages(wctx, kafka.Message{Key: []byte(r.RunID), Value: b}); err != nil {
		p.log.Warn("publish outcome event failed",
			zap.String("run_id", r.RunID),
			zap.Int("seq", e.Seq),
			zap.Error(err))
	}
}

func (p *Publisher) OnFinish(context.Context, *model.SendReport) {}

func (p *Publisher) Close() error { return p.w.Close() }
