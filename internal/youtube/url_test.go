package youtube_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/youtube"
)

var _ = Describe("URL parsing", func() {
	DescribeTable("ExtractVideoID accepts",
		func(in string) {
			id, err := ExtractVideoID(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("dQw4w9WgXcQ"))
		},
		Entry("a bare id", "dQw4w9WgXcQ"),
		Entry("a watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"),
		Entry("a watch URL with extra params", "https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42"),
		Entry("a mobile URL", "https://m.youtube.com/watch?v=dQw4w9WgXcQ"),
		Entry("a URL without scheme", "youtube.com/watch?v=dQw4w9WgXcQ"),
		Entry("a short link", "https://youtu.be/dQw4w9WgXcQ?si=abc"),
		Entry("an embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ"),
		Entry("a /v/ URL", "https://www.youtube.com/v/dQw4w9WgXcQ"),
		Entry("a shorts URL", "https://youtube.com/shorts/dQw4w9WgXcQ"),
		Entry("a nocookie embed", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ"),
		Entry("an id in any other path", "https://invidious.example/watch/dQw4w9WgXcQ"),
	)

	DescribeTable("ExtractVideoID rejects",
		func(in string) {
			_, err := ExtractVideoID(in)
			Expect(err).To(MatchError(ErrInvalidURL))
		},
		Entry("empty input", ""),
		Entry("another site", "https://vimeo.com/123456789"),
		Entry("a channel page", "https://www.youtube.com/@somecreator"),
		Entry("a short id", "abc"),
	)

	DescribeTable("ParseChannelURL",
		func(in string, want ChannelRef) {
			ref, err := ParseChannelURL(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(Equal(want))
		},
		Entry("a channel id URL", "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
			ChannelRef{Value: "UCuAXFkgsw1L7xaCfnd5JJOw", Kind: ChannelByID}),
		Entry("a bare channel id", "UCuAXFkgsw1L7xaCfnd5JJOw",
			ChannelRef{Value: "UCuAXFkgsw1L7xaCfnd5JJOw", Kind: ChannelByID}),
		Entry("a legacy user URL", "youtube.com/user/somecreator",
			ChannelRef{Value: "somecreator", Kind: ChannelByUsername}),
		Entry("a handle URL", "https://www.youtube.com/@somecreator/videos",
			ChannelRef{Value: "somecreator", Kind: ChannelByHandle}),
		Entry("a bare handle", "@somecreator",
			ChannelRef{Value: "somecreator", Kind: ChannelByHandle}),
	)

	It("rejects unsupported channel URLs", func() {
		_, err := ParseChannelURL("https://example.com/channel/abc")
		Expect(err).To(MatchError(ErrInvalidURL))
		_, err = ParseChannelURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
		Expect(err).To(MatchError(ErrInvalidURL))
	})

	It("recognizes channel ids", func() {
		Expect(IsChannelID("UCuAXFkgsw1L7xaCfnd5JJOw")).To(BeTrue())
		Expect(IsChannelID("UCshort")).To(BeFalse())
		Expect(IsChannelID("XXuAXFkgsw1L7xaCfnd5JJOw")).To(BeFalse())
	})
})
