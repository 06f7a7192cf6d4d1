package event

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/metrics"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// Sink delivers alerts somewhere.
type Sink interface {
	Name() string
	Notify(ctx context.Context, alert types.Alert) error
}

// Bus queues alerts and delivers them to every sink from a single worker, so
// a slow sink never stalls the event stream.
type Bus struct {
	sinks     []Sink
	alertChan chan types.Alert
	mutex     sync.RWMutex
	closed    bool
	started   bool
	done      chan struct{}
	logger    *logrus.Entry
}

// NewBus creates a bus holding at most bufferSize pending alerts.
func NewBus(bufferSize int, logger *logrus.Entry, sinks ...Sink) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Bus{
		sinks:     sinks,
		alertChan: make(chan types.Alert, bufferSize),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start launches the delivery worker. Deliveries outlive ctx cancellation so
// queued alerts are still sent while shutting down.
func (b *Bus) Start(ctx context.Context) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	go b.worker(context.WithoutCancel(ctx))
}

// Publish queues an alert without blocking.
func (b *Bus) Publish(alert types.Alert) error {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if b.closed {
		metrics.AlertsDropped.Inc()
		return ErrBusClosed
	}
	select {
	case b.alertChan <- alert:
		return nil
	default:
		metrics.AlertsDropped.Inc()
		return ErrBusFull
	}
}

// Close stops accepting alerts and waits until the queue is drained.
func (b *Bus) Close() {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.alertChan)
	started := b.started
	b.mutex.Unlock()

	if !started {
		close(b.done)
		return
	}
	<-b.done
}

func (b *Bus) worker(ctx context.Context) {
	defer close(b.done)
	for alert := range b.alertChan {
		b.deliver(ctx, alert)
	}
}

func (b *Bus) deliver(ctx context.Context, alert types.Alert) {
	for _, sink := range b.sinks {
		if err := sink.Notify(ctx, alert); err != nil {
			metrics.AlertsFailed.WithLabelValues(sink.Name()).Inc()
			b.logger.WithError(err).WithFields(logrus.Fields{
				"sink":   sink.Name(),
				"source": alert.Source,
			}).Error("alert delivery failed")
			continue
		}
		metrics.AlertsSent.WithLabelValues(sink.Name()).Inc()
		b.logger.WithFields(logrus.Fields{"sink": sink.Name(), "source": alert.Source}).Info("alert sent")
	}
}

// ErrBusFull is returned when the alert queue is full
var ErrBusFull = &BusError{message: "alert queue is full"}

// ErrBusClosed is returned after Close
var ErrBusClosed = &BusError{message: "alert bus is closed"}

// BusError represents an error in the alert bus
type BusError struct {
	message string
}

func (e *BusError) Error() string {
	return e.message
}
