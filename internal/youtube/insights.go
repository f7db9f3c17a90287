package youtube

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

var stopWords = map[string]struct{}{
	"a": {}, "the": {}, "and": {}, "in": {}, "to": {}, "of": {}, "it": {}, "is": {}, "that": {}, "this": {},
	"for": {}, "you": {}, "on": {}, "with": {}, "are": {}, "be": {}, "as": {}, "by": {}, "an": {}, "i": {},
	"was": {}, "at": {}, "have": {}, "my": {}, "your": {}, "from": {}, "we": {}, "they": {}, "them": {},
	"their": {}, "his": {}, "her": {}, "he": {}, "she": {},
}

var (
	positiveWords = []string{"great", "good", "amazing", "awesome", "excellent", "love", "best", "perfect"}
	negativeWords = []string{"bad", "terrible", "awful", "worst", "hate", "disappointing", "poor", "horrible"}

	sponsorIndicators = []string{
		"sponsored by", "thanks to", "brought to you by", "special thanks to",
		"partner with", "sponsored video", "ad", "affiliate", "promotional",
		"discount code", "promo code", "coupon", "use code", "check out",
	}

	wordRe  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	brandRe = regexp.MustCompile(`[A-Z][a-zA-Z0-9]*(?:\s[A-Z][a-zA-Z0-9]*)*`)
)

const sponsorWindow = 50

type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type InfluencerInfo struct {
	Name        string `json:"name"`
	Subscribers int64  `json:"subscribers"`
	TotalVideos int64  `json:"total_videos"`
	TotalViews  int64  `json:"total_views"`
}

// VideoInsights is the sponsor-facing summary of a single video.
type VideoInsights struct {
	VideoID           string         `json:"video_id"`
	Title             string         `json:"title"`
	ChannelID         string         `json:"channel_id"`
	ChannelTitle      string         `json:"channel_title"`
	SubscriberCount   int64          `json:"subscriber_count"`
	ViewCount         int64          `json:"view_count"`
	LikeCount         int64          `json:"like_count"`
	CommentCount      int64          `json:"comment_count"`
	EngagementRate    float64        `json:"engagement_rate"`
	Keywords          []string       `json:"keywords"`
	CommentSentiment  Sentiment      `json:"comment_sentiment"`
	TopComments       []Comment      `json:"top_comments"`
	PotentialSponsors []string       `json:"potential_sponsors"`
	InfluencerInfo    InfluencerInfo `json:"influencer_info"`
}

// BuildInsights combines video and channel statistics with comment analysis.
func BuildInsights(v *VideoStats, ch *ChannelStats, comments []Comment) *VideoInsights {
	return &VideoInsights{
		VideoID:           v.VideoID,
		Title:             v.Title,
		ChannelID:         v.ChannelID,
		ChannelTitle:      v.ChannelTitle,
		SubscriberCount:   ch.SubscriberCount,
		ViewCount:         v.ViewCount,
		LikeCount:         v.LikeCount,
		CommentCount:      v.CommentCount,
		EngagementRate:    EngagementRate(v.LikeCount, v.CommentCount, v.ViewCount),
		Keywords:          Keywords(v.Description),
		CommentSentiment:  CommentSentiment(comments),
		TopComments:       TopComments(comments, 5),
		PotentialSponsors: PotentialSponsors(v.Description, comments),
		InfluencerInfo: InfluencerInfo{
			Name:        ch.Title,
			Subscribers: ch.SubscriberCount,
			TotalVideos: ch.VideoCount,
			TotalViews:  ch.ViewCount,
		},
	}
}

// EngagementRate is (likes+comments)/views as a percentage with two decimals.
func EngagementRate(likes, comments, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return round2(float64(likes+comments) / float64(views) * 100)
}

// Keywords returns up to ten of the most frequent words longer than three
// characters, skipping stop words. Ties keep the order of first appearance.
func Keywords(text string) []string {
	if text == "" {
		return []string{}
	}
	counts := map[string]int{}
	var order []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[w]; stop || len([]rune(w)) <= 3 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > 10 {
		order = order[:10]
	}
	return order
}

// CommentSentiment classifies each comment by the presence of positive or
// negative words. Comments with both or neither count as neutral.
func CommentSentiment(comments []Comment) Sentiment {
	if len(comments) == 0 {
		return Sentiment{}
	}
	var pos, neg, neu int
	for _, c := range comments {
		text := strings.ToLower(c.Text)
		hasPos := containsAny(text, positiveWords)
		hasNeg := containsAny(text, negativeWords)
		switch {
		case hasPos && !hasNeg:
			pos++
		case hasNeg && !hasPos:
			neg++
		default:
			neu++
		}
	}
	total := float64(len(comments))
	return Sentiment{
		Positive: round2(float64(pos) / total * 100),
		Neutral:  round2(float64(neu) / total * 100),
		Negative: round2(float64(neg) / total * 100),
	}
}

// TopComments returns the limit most liked comments.
func TopComments(comments []Comment, limit int) []Comment {
	out := slices.Clone(comments)
	slices.SortStableFunc(out, func(a, b Comment) int {
		switch {
		case a.Likes > b.Likes:
			return -1
		case a.Likes < b.Likes:
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Comment{}
	}
	return out
}

// PotentialSponsors looks for a capitalized brand-like phrase right after
// each sponsor indicator in the description and the comments.
func PotentialSponsors(description string, comments []Comment) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(text string) {
		lower := asciiLower(text)
		for _, ind := range sponsorIndicators {
			i := strings.Index(lower, ind)
			if i < 0 {
				continue
			}
			start := i + len(ind)
			if start >= len(text) {
				continue
			}
			window := []rune(text[start:])
			window = window[:min(sponsorWindow, len(window))]
			if m := brandRe.FindString(strings.TrimSpace(string(window))); m != "" {
				if _, dup := seen[m]; !dup {
					seen[m] = struct{}{}
					out = append(out, m)
				}
			}
		}
	}
	add(description)
	for _, c := range comments {
		add(c.Text)
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// asciiLower lowercases ASCII letters only, so byte offsets stay aligned
// with the original text.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
