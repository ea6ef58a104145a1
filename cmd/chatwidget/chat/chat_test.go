package chatcmder

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has a --target flag defaulting to the local backend", func() {
		cmd := NewChatCmd()
		flag := cmd.Flags().Lookup("target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("t"))
		Expect(flag.DefValue).To(Equal("http://localhost:8080"))
	})

	It("has --serial and --markdown switches off by default", func() {
		cmd := NewChatCmd()
		for _, name := range []string{"serial", "markdown"} {
			flag := cmd.Flags().Lookup(name)
			Expect(flag).NotTo(BeNil(), name)
			Expect(flag.DefValue).To(Equal("false"), name)
		}
	})

	It("rejects positional arguments", func() {
		cmd := NewChatCmd()
		Expect(cmd.Args(cmd, []string{"hello"})).To(HaveOccurred())
	})
})
