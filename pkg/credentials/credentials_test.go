package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("places credentials.toml in the override directory", func() {
		Expect(mgr.Path()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	It("loads empty credentials when no file exists", func() {
		creds, err := mgr.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.Providers).To(BeEmpty())
	})

	It("stores, lists and removes keys", func() {
		Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

		key, err := mgr.GetKey("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("sk-test"))

		providers, err := mgr.ListProviders()
		Expect(err).NotTo(HaveOccurred())
		Expect(providers).To(Equal([]string{"openai"}))

		Expect(mgr.RemoveKey("openai")).To(Succeed())
		key, err = mgr.GetKey("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(BeEmpty())
	})

	It("writes the file readable by the owner only", func() {
		Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

		info, err := os.Stat(mgr.Path())
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
	})

	It("rejects providers that take no key", func() {
		err := mgr.SetKey("ollama", "key")
		var unsupported *credentials.UnsupportedProviderError
		Expect(err).To(BeAssignableToTypeOf(unsupported))
		Expect(err.Error()).To(ContainSubstring(`unsupported provider: "ollama"`))
	})

	It("fails on a malformed file", func() {
		Expect(os.WriteFile(mgr.Path(), []byte("providers = ["), 0o600)).To(Succeed())
		_, err := mgr.Load()
		Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
	})

	Describe("ResolveAPIKey", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "sk-env")
		})

		It("prefers the configured key", func() {
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			Expect(mgr.ResolveAPIKey("openai", "sk-config")).To(Equal("sk-config"))
		})

		It("falls back to the stored key", func() {
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
			Expect(mgr.ResolveAPIKey("openai", "")).To(Equal("sk-stored"))
		})

		It("falls back to the environment", func() {
			Expect(mgr.ResolveAPIKey("OpenAI", "")).To(Equal("sk-env"))
		})

		It("returns nothing for providers without keys", func() {
			Expect(mgr.ResolveAPIKey("ollama", "")).To(BeEmpty())
		})
	})
})

var _ = Describe("EnvVarForProvider", func() {
	It("maps openai to OPENAI_API_KEY", func() {
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("ollama")).To(BeEmpty())
	})
})
