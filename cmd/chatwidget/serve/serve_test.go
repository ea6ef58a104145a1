package servecmder

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chatwidget/pkg/backend"
	"github.com/papercomputeco/chatwidget/pkg/config"
	"github.com/papercomputeco/chatwidget/pkg/logger"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the backend flags with config defaults", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))

		listen := cmd.Flags().Lookup("listen")
		Expect(listen).NotTo(BeNil())
		Expect(listen.DefValue).To(Equal(":8080"))

		responder := cmd.Flags().Lookup("responder")
		Expect(responder).NotTo(BeNil())
		Expect(responder.DefValue).To(Equal(config.ResponderEcho))

		Expect(cmd.Flags().Lookup("upstream")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("model")).NotTo(BeNil())
	})
})

var _ = Describe("reload", func() {
	var (
		v   *viper.Viper
		srv *backend.Server
	)

	BeforeEach(func() {
		v = viper.New()
		v.Set("serve.responder", config.ResponderEcho)
		v.Set("serve.upstream", "http://localhost:11434")
		v.Set("serve.model", "gemma3:latest")
		srv = backend.NewServer(backend.EchoResponder{}, logger.Nop())
	})

	It("replaces the responder when the kind changes", func() {
		v.Set("serve.responder", config.ResponderOllama)
		Expect(reload(v, srv, logger.Nop())).To(Succeed())

		o, ok := srv.Responder().(*backend.OllamaResponder)
		Expect(ok).To(BeTrue())
		Expect(o.Model()).To(Equal("gemma3:latest"))
	})

	It("switches the model in place on the same upstream", func() {
		v.Set("serve.responder", config.ResponderOllama)
		Expect(reload(v, srv, logger.Nop())).To(Succeed())
		before := srv.Responder()

		v.Set("serve.model", "llama3.2")
		Expect(reload(v, srv, logger.Nop())).To(Succeed())

		Expect(srv.Responder()).To(BeIdenticalTo(before))
		Expect(before.(*backend.OllamaResponder).Model()).To(Equal("llama3.2"))
	})

	It("builds a new responder when the upstream changes", func() {
		v.Set("serve.responder", config.ResponderOllama)
		Expect(reload(v, srv, logger.Nop())).To(Succeed())
		before := srv.Responder()

		v.Set("serve.upstream", "http://gpu-box:11434/")
		Expect(reload(v, srv, logger.Nop())).To(Succeed())

		Expect(srv.Responder()).NotTo(BeIdenticalTo(before))
		Expect(srv.Responder().(*backend.OllamaResponder).Upstream()).To(Equal("http://gpu-box:11434"))
	})

	It("keeps the current responder on unknown kinds", func() {
		v.Set("serve.responder", "gpt")
		Expect(reload(v, srv, logger.Nop())).NotTo(Succeed())
		Expect(srv.Responder().Name()).To(Equal(config.ResponderEcho))
	})
})

var _ = Describe("run", func() {
	var (
		configDir string
		listener  net.Listener
		cmder     *serveCommander
		cmd       *cobra.Command
		cancel    context.CancelFunc
		done      chan error
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"),
			[]byte("[serve]\nresponder = \"echo\"\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(configDir)
		Expect(err).NotTo(HaveOccurred())

		listener, err = net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		cmd = &cobra.Command{}
		cmd.SetContext(ctx)

		cmder = &serveCommander{viper: v, logger: logger.Nop()}
		done = make(chan error, 1)
		go func() {
			done <- cmder.run(cmd, listener)
		}()
	})

	AfterEach(func() {
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})

	It("serves until the context is cancelled", func() {
		url := fmt.Sprintf("http://%s/ping", listener.Addr().String())
		Eventually(func() (int, error) {
			resp, err := http.Get(url)
			if err != nil {
				return 0, err
			}
			resp.Body.Close()
			return resp.StatusCode, nil
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))
	})
})
