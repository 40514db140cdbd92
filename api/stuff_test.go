package api

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/prompt"
	testutils "github.com/papercomputeco/recall/pkg/utils/test"
)

var _ = Describe("Stuff endpoint", func() {
	var (
		prov    *testutils.MockProvider
		server  *Server
		stuffer *prompt.Stuffer
	)

	BeforeEach(func() {
		prov = testutils.NewMockProvider("Stefania Constantini and Amos Mosaner")
		server = newTestServer(prov, nil, nil)

		var err error
		stuffer, err = prompt.Load("", "")
		Expect(err).NotTo(HaveOccurred())
	})

	sentPrompt := func() string {
		req := prov.LastRequest()
		Expect(req).NotTo(BeNil())
		Expect(req.Messages).To(HaveLen(1))
		return req.Messages[0].GetText()
	}

	It("returns the completion as JSON text", func() {
		status, body, _ := doRequest(server, fiber.MethodGet, "/example/ai/stuff")
		Expect(status).To(Equal(fiber.StatusOK))

		var resp StuffResponse
		Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
		Expect(resp.Text).To(Equal("Stefania Constantini and Amos Mosaner"))
	})

	It("uses the default question with empty context when nothing is given", func() {
		doRequest(server, fiber.MethodGet, "/example/ai/stuff")

		expected, err := stuffer.Render(prompt.DefaultQuestion, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(sentPrompt()).To(Equal(expected))
		Expect(sentPrompt()).NotTo(ContainSubstring(stuffer.Document()))
	})

	It("stuffs the whole document when stuffit=true", func() {
		q := url.Values{"message": {"Who won?"}, "stuffit": {"true"}}
		status, _, _ := doRequest(server, fiber.MethodGet, "/example/ai/stuff?"+q.Encode())
		Expect(status).To(Equal(fiber.StatusOK))

		expected, err := stuffer.Render("Who won?", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(sentPrompt()).To(Equal(expected))
		Expect(sentPrompt()).To(ContainSubstring(stuffer.Document()))
		Expect(sentPrompt()).To(ContainSubstring("Who won?"))
	})

	It("leaves context empty when stuffit=false", func() {
		doRequest(server, fiber.MethodGet, "/example/ai/stuff?stuffit=false&message=Who+won%3F")

		expected, err := stuffer.Render("Who won?", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(sentPrompt()).To(Equal(expected))
	})

	DescribeTable("accepts the usual boolean spellings for stuffit",
		func(raw string, stuffed bool) {
			status, _, _ := doRequest(server, fiber.MethodGet, "/example/ai/stuff?stuffit="+raw)
			Expect(status).To(Equal(fiber.StatusOK))

			expected, err := stuffer.Render(prompt.DefaultQuestion, stuffed)
			Expect(err).NotTo(HaveOccurred())
			Expect(sentPrompt()).To(Equal(expected))
		},
		Entry("yes", "yes", true),
		Entry("ON", "ON", true),
		Entry("1", "1", true),
		Entry("no", "no", false),
		Entry("off", "off", false),
		Entry("0", "0", false),
	)

	It("rejects a stuffit value that is not a boolean", func() {
		status, body, _ := doRequest(server, fiber.MethodGet, "/example/ai/stuff?stuffit=maybe")
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(decodeError(body)).To(Equal("stuffit must be a boolean"))
		Expect(prov.Requests()).To(BeEmpty())
	})

	It("returns 502 when the completion fails", func() {
		prov.FailBefore = errors.New("model unavailable")

		status, body, _ := doRequest(server, fiber.MethodGet, "/example/ai/stuff")
		Expect(status).To(Equal(fiber.StatusBadGateway))
		Expect(decodeError(body)).To(ContainSubstring("model unavailable"))
	})
})
