package youtube_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/youtube"
)

var _ = Describe("Insights", func() {
	Describe("EngagementRate", func() {
		It("is zero without views", func() {
			Expect(EngagementRate(10, 5, 0)).To(BeZero())
		})

		It("rounds to two decimals", func() {
			Expect(EngagementRate(100, 23, 3000)).To(Equal(4.1))
			Expect(EngagementRate(1, 0, 3)).To(Equal(33.33))
		})
	})

	Describe("Keywords", func() {
		It("counts long words and skips stop words", func() {
			kw := Keywords("Gaming setup tour! The gaming chair, the gaming desk and a setup for streaming.")
			Expect(kw).To(Equal([]string{"gaming", "setup", "tour", "chair", "desk", "streaming"}))
		})

		It("keeps at most ten keywords", func() {
			kw := Keywords("alpha bravo charlie delta echoes foxtrot golfs hotel india juliet kilos limas")
			Expect(kw).To(HaveLen(10))
			Expect(kw[0]).To(Equal("alpha"))
		})

		It("returns an empty list for empty text", func() {
			Expect(Keywords("")).To(BeEmpty())
		})
	})

	Describe("CommentSentiment", func() {
		It("is all zero without comments", func() {
			Expect(CommentSentiment(nil)).To(Equal(Sentiment{}))
		})

		It("classifies comments by word lists", func() {
			s := CommentSentiment([]Comment{
				{Text: "This is AMAZING"},
				{Text: "worst video ever"},
				{Text: "good but also bad"},
				{Text: "first"},
			})
			Expect(s).To(Equal(Sentiment{Positive: 25, Neutral: 50, Negative: 25}))
		})

		It("rounds percentages", func() {
			s := CommentSentiment([]Comment{{Text: "love it"}, {Text: "meh"}, {Text: "meh"}})
			Expect(s.Positive).To(Equal(33.33))
			Expect(s.Neutral).To(Equal(66.67))
		})
	})

	Describe("TopComments", func() {
		It("orders by likes and truncates", func() {
			comments := []Comment{
				{Text: "a", Likes: 1}, {Text: "b", Likes: 9}, {Text: "c", Likes: 5},
				{Text: "d", Likes: 5}, {Text: "e", Likes: 0}, {Text: "f", Likes: 7},
			}
			top := TopComments(comments, 5)
			Expect(top).To(HaveLen(5))
			texts := []string{}
			for _, c := range top {
				texts = append(texts, c.Text)
			}
			Expect(texts).To(Equal([]string{"b", "f", "c", "d", "a"}))
			Expect(comments[0].Text).To(Equal("a"))
		})
	})

	Describe("PotentialSponsors", func() {
		It("finds capitalized names after indicators", func() {
			desc := "This video is sponsored by Nord VPN for real. Use code KARTR at checkout."
			sponsors := PotentialSponsors(desc, []Comment{
				{Text: "thanks to Nike Running lol"},
				{Text: "sponsored by Nord VPN again"},
			})
			Expect(sponsors).To(Equal([]string{"Nord VPN", "KARTR", "Nike Running"}))
			Expect(sponsors).To(HaveLen(3))
		})

		It("measures the window after an indicator in characters", func() {
			desc := "sponsored by " + strings.Repeat("é", 30) + " Acme"
			Expect(PotentialSponsors(desc, nil)).To(Equal([]string{"Acme"}))
			Expect(PotentialSponsors("sponsored by "+strings.Repeat("é", 50)+" Acme", nil)).To(BeEmpty())
		})

		It("returns nothing when no indicator is present", func() {
			Expect(PotentialSponsors("Just a vlog", nil)).To(BeEmpty())
		})
	})

	It("builds video insights", func() {
		v := &VideoStats{
			VideoID: "dQw4w9WgXcQ", Title: "Setup tour", ChannelID: "UC1", ChannelTitle: "Creator",
			Description: "Desk setup tour, sponsored by Secretlab", ViewCount: 1000, LikeCount: 90, CommentCount: 10,
		}
		ch := &ChannelStats{ChannelID: "UC1", Title: "Creator", SubscriberCount: 5000, VideoCount: 40, ViewCount: 90000}
		in := BuildInsights(v, ch, []Comment{{Author: "fan", Text: "great desk", Likes: 3}})

		Expect(in.EngagementRate).To(Equal(10.0))
		Expect(in.SubscriberCount).To(BeEquivalentTo(5000))
		Expect(in.Keywords).To(ContainElements("desk", "setup", "tour", "secretlab"))
		Expect(in.PotentialSponsors).To(Equal([]string{"Secretlab"}))
		Expect(in.CommentSentiment.Positive).To(Equal(100.0))
		Expect(in.TopComments).To(HaveLen(1))
		Expect(in.InfluencerInfo).To(Equal(InfluencerInfo{Name: "Creator", Subscribers: 5000, TotalVideos: 40, TotalViews: 90000}))
	})
})
