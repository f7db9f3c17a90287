package gemini_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/gemini"
	"github.com/kartr/kartr/internal/youtube"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

var _ = Describe("Analyzer", func() {
	var (
		gen      *fakeGenerator
		analyzer *Analyzer
		ctx      = context.Background()
	)

	BeforeEach(func() {
		gen = &fakeGenerator{}
		analyzer = NewAnalyzer(gen)
	})

	Describe("AnalyzeVideo", func() {
		details := &youtube.VideoDetails{
			VideoID: "dQw4w9WgXcQ", Title: "Desk setup", Description: "Sponsored by Secretlab",
			ChannelName: "Creator", Tags: []string{"desk", "setup"},
			TopComments: []string{"c1", "c2", "c3", "c4", "c5", "c6"},
		}

		It("parses fenced JSON", func() {
			gen.reply = "```json\n{\"creator\":{\"name\":\"Creator\",\"industry\":\"Tech\"},\"sponsors\":[{\"name\":\"Secretlab\",\"industry\":\"Furniture\"}]}\n```"
			out, err := analyzer.AnalyzeVideo(ctx, details)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Creator).To(Equal(Entity{Name: "Creator", Industry: "Tech"}))
			Expect(out.Sponsors).To(ConsistOf(Entity{Name: "Secretlab", Industry: "Furniture"}))
		})

		It("puts the video metadata and five comments in the prompt", func() {
			gen.reply = `{"creator":{"name":"Creator","industry":"Tech"}}`
			out, err := analyzer.AnalyzeVideo(ctx, details)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Sponsors).NotTo(BeNil())
			Expect(out.Sponsors).To(BeEmpty())

			prompt := gen.prompts[0]
			Expect(prompt).To(ContainSubstring("Title: Desk setup"))
			Expect(prompt).To(ContainSubstring("Video Tags: desk, setup"))
			Expect(prompt).To(ContainSubstring("c1 | c2 | c3 | c4 | c5"))
			Expect(prompt).NotTo(ContainSubstring("c6"))
		})

		It("fails on unparseable output", func() {
			gen.reply = "I cannot help with that"
			_, err := analyzer.AnalyzeVideo(ctx, details)
			Expect(err).To(HaveOccurred())
		})

		It("passes generator errors through", func() {
			gen.err = errors.New("quota")
			_, err := analyzer.AnalyzeVideo(ctx, details)
			Expect(err).To(MatchError("quota"))
		})
	})

	Describe("AnalyzeTranscript", func() {
		It("fills missing fields with Unknown", func() {
			gen.reply = `Here you go: {"creator_name": "Jane", "sponsor_name": ""}`
			out, err := analyzer.AnalyzeTranscript(ctx, "hello world", "Title")
			Expect(err).NotTo(HaveOccurred())
			Expect(*out).To(Equal(TranscriptAnalysis{
				CreatorName: "Jane", CreatorIndustry: Unknown, SponsorName: Unknown, SponsorIndustry: Unknown,
			}))
		})

		It("falls back to key value lines", func() {
			gen.reply = "Creator Name: Jane\nCreator industry: Cooking\nSponsor name: HelloFresh\nSponsor Industry: Meal kits"
			out, err := analyzer.AnalyzeTranscript(ctx, "hello world", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.CreatorIndustry).To(Equal("Cooking"))
			Expect(out.SponsorName).To(Equal("HelloFresh"))
			Expect(out.SponsorIndustry).To(Equal("Meal kits"))
			Expect(gen.prompts[0]).To(ContainSubstring("Video title: Unknown"))
		})

		It("truncates long transcripts", func() {
			gen.reply = `{}`
			_, err := analyzer.AnalyzeTranscript(ctx, strings.Repeat("a", 5000)+"TAIL", "t")
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.prompts[0]).NotTo(ContainSubstring("TAIL"))
			Expect(gen.prompts[0]).To(ContainSubstring(strings.Repeat("a", 4000)))
		})

		It("rejects empty transcripts", func() {
			_, err := analyzer.AnalyzeTranscript(ctx, "  ", "t")
			Expect(err).To(MatchError(youtube.ErrNoTranscript))
			Expect(gen.prompts).To(BeEmpty())
		})
	})

	Describe("Answer", func() {
		It("grounds the answer on context rows", func() {
			gen.reply = "The sponsor is **Nord VPN**."
			answer, err := analyzer.Answer(ctx, "who sponsors Jane?", "Creator Name,Sponsor Name\nJane,Nord VPN\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("The sponsor is Nord VPN."))
			Expect(gen.prompts[0]).To(ContainSubstring("do NOT repeat or enumerate"))
			Expect(gen.prompts[0]).To(ContainSubstring("Jane,Nord VPN"))
		})

		It("uses general knowledge without context", func() {
			gen.reply = "An answer"
			_, err := analyzer.Answer(ctx, "what is a sponsor?", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.prompts[0]).To(ContainSubstring("no relevant data"))
		})
	})
})

var _ = DescribeTable("ExtractJSON",
	func(in, want string) {
		Expect(ExtractJSON(in)).To(Equal(want))
	},
	Entry("json fence", "```json\n{\"a\":1}\n```", `{"a":1}`),
	Entry("bare fence", "```\n{\"a\":1}\n```", `{"a":1}`),
	Entry("prose around braces", "Sure! {\"a\":{\"b\":2}} hope it helps", `{"a":{"b":2}}`),
	Entry("plain text", "  nothing here ", "nothing here"),
)
