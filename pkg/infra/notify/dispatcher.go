package notify

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 1000
	DefaultSinkTimeout = 5 * time.Second
)

type Config struct {
	Workers     int
	QueueSize   int
	SinkTimeout time.Duration
}

// Dispatcher is a bounded queue in front of the sinks. Send never waits: a full
// or shut down queue drops the notification and counts it.
type Dispatcher struct {
	logger  *logrus.Logger
	sinks   []Sink
	cfg     Config
	now     func() time.Time
	tasks   chan Envelope
	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup
}

var _ notification.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(logger *logrus.Logger, sinks []Sink, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}
	return &Dispatcher{
		logger: logger,
		sinks:  sinks,
		cfg:    cfg,
		now:    time.Now,
		tasks:  make(chan Envelope, cfg.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.started.Do(func() {
		d.logger.WithField("workers", d.cfg.Workers).Info("starting notification workers")
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				for env := range d.tasks {
					d.deliver(env)
				}
			}()
		}
	})
}

func (d *Dispatcher) Send(target notification.Target, n notification.Notification) {
	kind := string(n.Kind)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		prometheus.Notifications.WithLabelValues(kind, "dropped").Inc()
		return
	}
	select {
	case d.tasks <- Envelope{Target: target, Notification: n, SentAt: d.now()}:
		prometheus.Notifications.WithLabelValues(kind, "queued").Inc()
	default:
		prometheus.Notifications.WithLabelValues(kind, "dropped").Inc()
		d.logger.WithFields(logrus.Fields{
			"kind":       kind,
			"session_id": n.SessionID,
		}).Warn("notification queue is full, dropping notification")
	}
}

// Shutdown stops accepting notifications, lets the workers drain what is queued
// and closes the sinks.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.logger.Info("shutting down notification workers")
	d.wg.Wait()
	for _, sink := range d.sinks {
		sink.Close()
	}
	d.logger.Info("notification workers stopped")
}

func (d *Dispatcher) deliver(env Envelope) {
	kind := string(env.Notification.Kind)
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SinkTimeout)
		err := sink.Deliver(ctx, env)
		cancel()
		if err != nil {
			prometheus.Notifications.WithLabelValues(kind, "failed").Inc()
			d.logger.WithFields(logrus.Fields{
				"sink":       sink.Name(),
				"kind":       kind,
				"target":     env.Target.String(),
				"session_id": env.Notification.SessionID,
			}).WithError(err).Error("notification sink failed")
			continue
		}
		prometheus.Notifications.WithLabelValues(kind, "delivered").Inc()
	}
}
