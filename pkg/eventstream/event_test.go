package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/llm"
)

var _ = Describe("Event", func() {
	It("stamps new events with schema, type and a unique ID", func() {
		resp := &llm.ChatResponse{StopReason: "stop", Usage: &llm.Usage{TotalTokens: 7}}
		source := eventstream.EventSource{Backend: "sqlite", Model: "llama3.2"}

		first := eventstream.NewTurnRecordedEvent(source, "abc123", resp,
			llm.NewTextMessage(llm.RoleUser, "hello"),
			llm.NewTextMessage(llm.RoleAssistant, "hi"),
		)
		second := eventstream.NewTurnRecordedEvent(source, "abc123", nil)

		Expect(first.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(first.EventType).To(Equal("recall.turn.recorded"))
		Expect(first.EventID).NotTo(BeEmpty())
		Expect(first.EventID).NotTo(Equal(second.EventID))
		Expect(first.EmittedAt).NotTo(BeZero())
		Expect(first.StopReason).To(Equal("stop"))
		Expect(first.Usage.TotalTokens).To(Equal(7))
		Expect(first.Turns).To(HaveLen(2))
		Expect(second.Usage).To(BeNil())
	})

	It("marshals with expected top-level keys", func() {
		event := eventstream.NewTurnRecordedEvent(
			eventstream.EventSource{Backend: "redis"}, "abc123", nil,
			llm.NewTextMessage(llm.RoleUser, "hello"),
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKeyWithValue("conversation_id", "abc123"))
		Expect(got).To(HaveKey("turns"))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
