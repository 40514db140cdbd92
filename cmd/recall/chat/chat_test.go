package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/api"
	chatcmder "github.com/papercomputeco/recall/cmd/recall/chat"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/llm"
)

// fakeServer records the requests the chat command makes.
type fakeServer struct {
	mu       sync.Mutex
	queries  []url.Values
	paths    []string
	deleted  int
	failWith int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.Query())
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	if f.failWith != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failWith)
		_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "provider unavailable"})
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/history") && r.Method == http.MethodDelete:
		f.mu.Lock()
		f.deleted++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/history"):
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.HistoryResponse{
			Backend:        "sqlite",
			ConversationID: r.URL.Query().Get("chatId"),
			Turns: []llm.Message{
				llm.NewTextMessage("user", "my name is Ada"),
				llm.NewTextMessage("assistant", "Hello, Ada"),
			},
			Count: 2,
		})
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Hello, "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("Ada"))
	}
}

func (f *fakeServer) Queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries...)
}

func (f *fakeServer) Deleted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted
}

func (f *fakeServer) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has a --backend flag defaulting to sqlite", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("backend")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("b"))
		Expect(flag.DefValue).To(Equal(api.BackendSQLite))
	})

	It("has an --api-target flag with the default server URL", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("api-target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("a"))
		Expect(flag.DefValue).To(Equal("http://localhost:8080"))
	})
})

var _ = Describe("Chat session", func() {
	var (
		fake      *fakeServer
		srv       *httptest.Server
		configDir string
	)

	BeforeEach(func() {
		fake = &fakeServer{}
		srv = httptest.NewServer(fake)
		configDir = GinkgoT().TempDir()
	})

	AfterEach(func() {
		srv.Close()
	})

	execute := func(input string, args ...string) (string, error) {
		cmd := chatcmder.NewChatCmd()
		cmd.Flags().String("config-dir", configDir, "")
		cmd.Flags().Bool("debug", false, "")

		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--api-target", srv.URL}, args...))

		err := cmd.Execute()
		return out.String(), err
	}

	It("streams the reply and sends prompt and chatId", func() {
		out, err := execute("my name is Ada\n/exit\n", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Hello, Ada"))

		queries := fake.Queries()
		Expect(queries).To(HaveLen(1))
		Expect(queries[0].Get("prompt")).To(Equal("my name is Ada"))
		Expect(queries[0].Get("chatId")).To(Equal("abc123"))
		Expect(fake.Paths()).To(Equal([]string{"/chat-memory/sqlite"}))
	})

	It("uses the selected backend", func() {
		_, err := execute("hi\n", "--backend", "redis", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Paths()).To(Equal([]string{"/chat-memory/redis"}))
	})

	It("skips blank lines", func() {
		_, err := execute("\n   \n/exit\n", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Queries()).To(BeEmpty())
	})

	It("saves the session and resumes it on the next run", func() {
		_, err := execute("hi\n", "--backend", "redis")
		Expect(err).NotTo(HaveOccurred())

		session, err := dotdir.NewManager().LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(session).NotTo(BeNil())
		Expect(session.ConversationID).NotTo(BeEmpty())
		Expect(session.Backend).To(Equal("redis"))

		out, err := execute("again\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Resuming conversation " + session.ConversationID))

		queries := fake.Queries()
		Expect(queries).To(HaveLen(2))
		Expect(queries[1].Get("chatId")).To(Equal(session.ConversationID))
		Expect(fake.Paths()[1]).To(Equal("/chat-memory/redis"))
	})

	It("starts a new conversation with --new", func() {
		Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{
			ConversationID: "old-conversation",
			Backend:        "sqlite",
		}, configDir)).To(Succeed())

		_, err := execute("hi\n", "--new")
		Expect(err).NotTo(HaveOccurred())

		queries := fake.Queries()
		Expect(queries).To(HaveLen(1))
		Expect(queries[0].Get("chatId")).NotTo(Equal("old-conversation"))
		Expect(queries[0].Get("chatId")).NotTo(BeEmpty())
	})

	It("prints stored turns with /history", func() {
		out, err := execute("/history\n", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("my name is Ada"))
		Expect(fake.Paths()).To(Equal([]string{"/chat-memory/sqlite/history"}))
		Expect(fake.Queries()[0].Get("chatId")).To(Equal("abc123"))
	})

	It("clears stored turns with /forget", func() {
		out, err := execute("/forget\n", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Conversation cleared"))
		Expect(fake.Deleted()).To(Equal(1))
	})

	It("reports server errors and keeps the session going", func() {
		fake.failWith = http.StatusBadGateway

		out, err := execute("hi\nhi again\n", "--chat-id", "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("recall server returned status 502: provider unavailable"))
		Expect(fake.Queries()).To(HaveLen(2))
	})
})
