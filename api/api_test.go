package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/chat"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/inmemory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/prompt"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

// newTestServer builds a server around a mock provider and the given backends.
func newTestServer(prov *testutils.MockProvider, backends map[string]memory.Factory, m *metrics.Metrics) *Server {
	client, err := chat.NewClient(chat.Config{Provider: prov, Model: "test-model"})
	Expect(err).NotTo(HaveOccurred())

	stuffer, err := prompt.Load("", "")
	Expect(err).NotTo(HaveOccurred())

	server, err := NewServer(Config{
		ListenAddr: ":0",
		Client:     client,
		Stuffer:    stuffer,
		Backends:   backends,
		Metrics:    m,
	}, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return server
}

// doRequest runs req through the fiber app and returns status and body.
func doRequest(server *Server, method, target string) (int, string, http.Header) {
	req := httptest.NewRequest(method, target, nil)
	resp, err := server.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, string(body), resp.Header
}

func decodeError(body string) string {
	var errResp llm.ErrorResponse
	Expect(json.Unmarshal([]byte(body), &errResp)).To(Succeed())
	return errResp.Error
}

var _ = Describe("NewServer", func() {
	It("requires a chat client", func() {
		stuffer, err := prompt.Load("", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = NewServer(Config{Stuffer: stuffer}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("chat client is required")))
	})

	It("requires a prompt stuffer", func() {
		client, err := chat.NewClient(chat.Config{Provider: testutils.NewMockProvider()})
		Expect(err).NotTo(HaveOccurred())

		_, err = NewServer(Config{Client: client}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("prompt stuffer is required")))
	})

	It("only registers configured backends, in route order", func() {
		server := newTestServer(testutils.NewMockProvider("hi"), map[string]memory.Factory{
			BackendRedis:    memory.Shared(testutils.NewMockStore()),
			BackendInMemory: inmemory.PerRequest(),
		}, nil)
		Expect(server.Backends()).To(Equal([]string{BackendInMemory, BackendRedis}))

		status, _, _ := doRequest(server, fiber.MethodGet, "/chat-memory/sqlite?prompt=hi&chatId=1")
		Expect(status).To(Equal(fiber.StatusNotFound))
	})
})

var _ = Describe("Ping", func() {
	It("returns pong", func() {
		server := newTestServer(testutils.NewMockProvider(), nil, nil)
		status, body, _ := doRequest(server, fiber.MethodGet, "/ping")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(body).To(Equal(`"pong"`))
	})
})

var _ = Describe("Metrics", func() {
	It("serves prometheus metrics when configured", func() {
		m := metrics.New("")
		server := newTestServer(testutils.NewMockProvider(), nil, m)

		status, _, _ := doRequest(server, fiber.MethodGet, "/ping")
		Expect(status).To(Equal(fiber.StatusOK))

		status, body, _ := doRequest(server, fiber.MethodGet, "/metrics")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(body).To(ContainSubstring(`recall_http_requests_total{route="/ping",status="2xx"} 1`))
	})

	It("is not mounted without metrics", func() {
		server := newTestServer(testutils.NewMockProvider(), nil, nil)
		status, _, _ := doRequest(server, fiber.MethodGet, "/metrics")
		Expect(status).To(Equal(fiber.StatusNotFound))
	})
})
