package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/provider"
	"github.com/papercomputeco/recall/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Provider", func() {
	var (
		upstream *httptest.Server
		p        provider.Provider
		received map[string]any
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		received = nil
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			handler(w, r)
		}))
		p = ollama.New(upstream.URL, upstream.Client())
	})

	AfterEach(func() {
		upstream.Close()
	})

	request := func() *llm.ChatRequest {
		return &llm.ChatRequest{
			Model: "llama3.2",
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleUser, "Hi"),
			},
		}
	}

	Describe("Name", func() {
		It("returns 'ollama'", func() {
			Expect(p.Name()).To(Equal("ollama"))
		})
	})

	Describe("Chat", func() {
		It("sends a non-streaming request and parses the reply", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Hello!"},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`)
			}

			resp, err := p.Chat(context.Background(), request())
			Expect(err).NotTo(HaveOccurred())
			Expect(received["stream"]).To(BeFalse())
			Expect(received["model"]).To(Equal("llama3.2"))
			Expect(resp.Message.GetText()).To(Equal("Hello!"))
			Expect(resp.StopReason).To(Equal("stop"))
			Expect(resp.Usage.TotalTokens).To(Equal(5))
		})

		It("returns an error on non-200 responses", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"model not found"}`)
			}

			_, err := p.Chat(context.Background(), request())
			Expect(err).To(MatchError(ContainSubstring("status 404")))
		})
	})

	Describe("ChatStream", func() {
		It("sends each NDJSON line as a chunk", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}`)
				fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}`)
				fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`)
			}

			chunks := make(chan llm.StreamChunk, 8)
			Expect(p.ChatStream(context.Background(), request(), chunks)).To(Succeed())
			close(chunks)

			var text string
			var last llm.StreamChunk
			for c := range chunks {
				text += c.Message.GetText()
				last = c
			}
			Expect(received["stream"]).To(BeTrue())
			Expect(text).To(Equal("Hello"))
			Expect(last.Done).To(BeTrue())
		})

		It("surfaces in-band errors", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintln(w, `{"error":"out of memory"}`)
			}

			chunks := make(chan llm.StreamChunk, 1)
			err := p.ChatStream(context.Background(), request(), chunks)
			Expect(err).To(MatchError(ContainSubstring("out of memory")))
		})

		It("fails when the stream ends without a done line", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintln(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`)
			}

			chunks := make(chan llm.StreamChunk, 1)
			err := p.ChatStream(context.Background(), request(), chunks)
			Expect(err).To(MatchError(ContainSubstring("ended before done")))
		})

		It("stops when the context is cancelled", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintln(w, `{"message":{"role":"assistant","content":"a"},"done":false}`)
				fmt.Fprintln(w, `{"message":{"role":"assistant","content":"b"},"done":true}`)
			}

			ctx, cancel := context.WithCancel(context.Background())
			chunks := make(chan llm.StreamChunk)
			errCh := make(chan error, 1)
			go func() { errCh <- p.ChatStream(ctx, request(), chunks) }()

			Eventually(chunks).Should(Receive())
			cancel()
			Eventually(errCh).Should(Receive(HaveOccurred()))
		})
	})
})
