package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// recordingPublisher collects published events. When block is set, each
// publish waits for it to be closed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnRecordedEvent
	fail   error
	block  chan struct{}
	closed bool
}

func (r *recordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnRecordedEvent) error {
	if r.block != nil {
		<-r.block
	}
	if r.fail != nil {
		return r.fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recordingPublisher) published() []*eventstream.TurnRecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.TurnRecordedEvent{}, r.events...)
}

func newEvent(conversationID string) *eventstream.TurnRecordedEvent {
	return eventstream.NewTurnRecordedEvent(
		eventstream.EventSource{Backend: "in-memory"}, conversationID, nil,
		llm.NewTextMessage(llm.RoleUser, "hello"),
		llm.NewTextMessage(llm.RoleAssistant, "hi"),
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		publisher *recordingPublisher
		m         *metrics.Metrics
	)

	BeforeEach(func() {
		publisher = &recordingPublisher{}
		m = metrics.New("")
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		wp, err := NewPool(&Config{Publisher: publisher})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(cap(wp.queue)).To(Equal(int(defaultJobQueueSize)))
	})

	Describe("Enqueue", func() {
		It("publishes queued jobs before Close returns", func() {
			wp, err := NewPool(&Config{Publisher: publisher, Metrics: m})
			Expect(err).NotTo(HaveOccurred())

			for _, id := range []string{"a", "b", "c"} {
				Expect(wp.Enqueue(Job{Event: newEvent(id)})).To(BeTrue())
			}
			wp.Close()

			Expect(publisher.published()).To(HaveLen(3))
			Expect(testutil.ToFloat64(m.Events.WithLabelValues("published"))).To(Equal(3.0))
		})

		It("closes the publisher after draining", func() {
			wp, err := NewPool(&Config{Publisher: publisher})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Event: newEvent("a")})).To(BeTrue())
			wp.Close()

			Expect(publisher.published()).To(HaveLen(1))
			Expect(publisher.isClosed()).To(BeTrue())
		})

		It("rejects jobs without an event", func() {
			wp, err := NewPool(&Config{Publisher: publisher})
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(wp.Enqueue(Job{})).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			publisher.block = make(chan struct{})
			wp, err := NewPool(&Config{Publisher: publisher, NumWorkers: 1, QueueSize: 1, Metrics: m})
			Expect(err).NotTo(HaveOccurred())

			// first is picked up by the worker and blocks, second fills the queue
			Expect(wp.Enqueue(Job{Event: newEvent("first")})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(Equal(0))
			Expect(wp.Enqueue(Job{Event: newEvent("second")})).To(BeTrue())
			Expect(wp.Enqueue(Job{Event: newEvent("third")})).To(BeFalse())

			close(publisher.block)
			wp.Close()

			Expect(publisher.published()).To(HaveLen(2))
			Expect(testutil.ToFloat64(m.Events.WithLabelValues("dropped"))).To(Equal(1.0))
		})

		It("counts failed publishes", func() {
			publisher.fail = errors.New("broker down")
			wp, err := NewPool(&Config{Publisher: publisher, Metrics: m})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Event: newEvent("a")})).To(BeTrue())
			wp.Close()

			Expect(publisher.published()).To(BeEmpty())
			Expect(testutil.ToFloat64(m.Events.WithLabelValues("failed"))).To(Equal(1.0))
		})
	})
})
