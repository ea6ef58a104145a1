package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatwidget/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	chdir := func(dir string) {
		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(origDir) })
	}

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override over a local .chatwidget dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, dotdir.DirName), 0o755)).To(Succeed())
			chdir(tmpDir)

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("uses the local .chatwidget dir when present", func() {
			local := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to the home directory", func() {
			work := filepath.Join(tmpDir, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work)

			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", home)).To(Succeed())
			DeferCleanup(func() { _ = os.Setenv("HOME", origHome) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, dotdir.DirName)))
		})
	})

	Describe("OpenLog", func() {
		It("appends to the log file across opens", func() {
			f, err := m.OpenLog(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			_, err = f.WriteString("one\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Close()).To(Succeed())

			f, err = m.OpenLog(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			_, err = f.WriteString("two\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Close()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "chatwidget.log"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("one\ntwo\n"))
		})
	})
})
