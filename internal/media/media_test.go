package media_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/media"
)

var _ = Describe("Media", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		for _, name := range []string{"b.PNG", "a.jpg", "notes.txt", "clip.mp4", "c.webp"} {
			Expect(os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)).To(Succeed())
		}
		Expect(os.Mkdir(filepath.Join(dir, "folder.png"), 0755)).To(Succeed())
	})

	It("lists image files sorted", func() {
		Expect(ListImages(dir)).To(Equal([]string{"a.jpg", "b.PNG", "c.webp"}))
	})

	It("returns an empty list for a missing directory", func() {
		Expect(ListImages(filepath.Join(dir, "nope"))).To(BeEmpty())
	})

	DescribeTable("Resolve",
		func(name string, expectErr error) {
			p, err := Resolve(dir, name)
			if expectErr != nil {
				Expect(err).To(MatchError(expectErr))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(filepath.Join(dir, name)))
		},
		Entry("a file in the root", "clip.mp4", nil),
		Entry("a missing file", "missing.png", ErrNotFound),
		Entry("a directory", "folder.png", ErrNotFound),
		Entry("a parent escape", "../etc/passwd", ErrOutsideRoot),
		Entry("an empty name", "", ErrNotFound),
	)

	It("classifies extensions", func() {
		Expect(IsImage("x.JPEG")).To(BeTrue())
		Expect(IsVideo("x.mov")).To(BeTrue())
		Expect(IsImage("x.mp4")).To(BeFalse())
	})
})
