package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/recall/cmd/recall/auth"
	"github.com/papercomputeco/recall/pkg/credentials"
)

var _ = Describe("Auth command", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	execute := func(input string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.Flags().String("config-dir", configDir, "")

		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{}, args...))

		err := cmd.Execute()
		return out.String(), err
	}

	storedKey := func() string {
		mgr, err := credentials.NewManager(configDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey("openai")
		Expect(err).NotTo(HaveOccurred())
		return key
	}

	It("stores a key read from stdin", func() {
		out, err := execute("  sk-test  \n", "openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Stored"))
		Expect(storedKey()).To(Equal("sk-test"))
	})

	It("requires a provider", func() {
		_, err := execute("")
		Expect(err).To(MatchError(ContainSubstring("provider argument required")))
	})

	It("rejects unsupported providers", func() {
		_, err := execute("key\n", "ollama")
		Expect(err).To(MatchError(ContainSubstring(`unsupported provider: "ollama"`)))
	})

	It("rejects an empty key", func() {
		_, err := execute("   \n", "openai")
		Expect(err).To(MatchError("API key cannot be empty"))
	})

	It("lists and removes stored keys", func() {
		_, err := execute("sk-test\n", "openai")
		Expect(err).NotTo(HaveOccurred())

		out, err := execute("", "--list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("openai"))
		Expect(out).To(ContainSubstring("OPENAI_API_KEY"))

		_, err = execute("", "--remove", "openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(storedKey()).To(BeEmpty())

		out, err = execute("", "--list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No stored keys"))
	})
})
