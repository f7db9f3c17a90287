package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/internal/youtube"
)

const (
	Unknown            = "Unknown"
	maxTranscriptChars = 4000
)

type Entity struct {
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

// ContentAnalysis is the creator and sponsor breakdown of one video.
type ContentAnalysis struct {
	Creator  Entity   `json:"creator"`
	Sponsors []Entity `json:"sponsors"`
}

type TranscriptAnalysis struct {
	CreatorName     string `json:"creator_name"`
	CreatorIndustry string `json:"creator_industry"`
	SponsorName     string `json:"sponsor_name"`
	SponsorIndustry string `json:"sponsor_industry"`
}

type Analyzer struct {
	gen Generator
}

func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// AnalyzeVideo asks the model for the creator and every sponsor of a video.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, d *youtube.VideoDetails) (*ContentAnalysis, error) {
	resp, err := a.gen.Generate(ctx, videoPrompt(d))
	if err != nil {
		return nil, err
	}
	var out ContentAnalysis
	if err := json.Unmarshal([]byte(ExtractJSON(resp)), &out); err != nil {
		logrus.WithError(err).WithField("video_id", d.VideoID).Debugf("Unparseable model response: %q", resp)
		return nil, fmt.Errorf("failed to analyze content: %w", err)
	}
	if out.Sponsors == nil {
		out.Sponsors = []Entity{}
	}
	return &out, nil
}

// AnalyzeTranscript extracts creator and sponsor from a transcript. Fields the
// model leaves out are reported as Unknown.
func (a *Analyzer) AnalyzeTranscript(ctx context.Context, transcript, title string) (*TranscriptAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, youtube.ErrNoTranscript
	}
	if title == "" {
		title = Unknown
	}
	if r := []rune(transcript); len(r) > maxTranscriptChars {
		transcript = string(r[:maxTranscriptChars])
	}
	resp, err := a.gen.Generate(ctx, fmt.Sprintf(transcriptPrompt, title, transcript))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if payload := ExtractJSON(resp); strings.HasPrefix(payload, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return nil, fmt.Errorf("error parsing response: %w", err)
		}
		for k, v := range raw {
			if s, ok := v.(string); ok {
				fields[k] = strings.TrimSpace(s)
			}
		}
	} else {
		fields = parseKeyValues(resp)
	}

	get := func(k string) string {
		if v := fields[k]; v != "" {
			return v
		}
		return Unknown
	}
	return &TranscriptAnalysis{
		CreatorName:     get("creator_name"),
		CreatorIndustry: get("creator_industry"),
		SponsorName:     get("sponsor_name"),
		SponsorIndustry: get("sponsor_industry"),
	}, nil
}

// Answer replies to a question, grounded on CSV rows when there are any.
func (a *Analyzer) Answer(ctx context.Context, question, csvContext string) (string, error) {
	var prompt string
	if strings.TrimSpace(csvContext) != "" {
		prompt = fmt.Sprintf(groundedAnswerPrompt, csvContext, question)
	} else {
		prompt = fmt.Sprintf(openAnswerPrompt, question)
	}
	resp, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return stripBold(strings.TrimSpace(resp)), nil
}

func videoPrompt(d *youtube.VideoDetails) string {
	comments := d.TopComments
	if len(comments) > 5 {
		comments = comments[:5]
	}
	return fmt.Sprintf(videoPromptTemplate,
		d.Title, d.Description, d.ChannelName, d.ChannelDescription, d.ChannelKeywords,
		strings.Join(d.Tags, ", "), strings.Join(comments, " | "))
}

const videoPromptTemplate = `Analyze this YouTube video information and extract:
1. The creator's full name (the person or entity who made the video)
2. The creator's primary industry/niche (be specific)
3. All sponsors mentioned in the video (companies paying for promotion)
4. Each sponsor's industry sector

VIDEO INFORMATION:
Title: %s

Description:
%s

Channel: %s
Channel Description: %s
Channel Keywords: %s

Video Tags: %s

Top Comments:
%s

Format your response as a JSON object with this structure:
{
    "creator": {
        "name": "Full Creator Name",
        "industry": "Specific Industry/Niche"
    },
    "sponsors": [
        {
            "name": "Sponsor Company Name",
            "industry": "Sponsor's Industry Sector"
        }
    ]
}

If no sponsors are detected, return an empty array for sponsors.
Provide only the JSON object, no additional text.`

const transcriptPrompt = `Analyze this YouTube video transcript and extract the following information:
1. Creator name (the person or channel who created this content)
2. Creator industry or niche
3. Sponsor name (the brand or company being promoted, if any)
4. Sponsor industry

If any information is not available, respond with "Unknown".

Video title: %s
Transcript: %s

Format your response as JSON with these keys: creator_name, creator_industry, sponsor_name, sponsor_industry`

const groundedAnswerPrompt = `You are a data assistant. Given the following CSV data rows as background information, ` +
	`answer the question concisely and do NOT repeat or enumerate the CSV rows in your answer. ` +
	`Do NOT mention the frequency or number of occurrences of any entry. ` +
	`Use the data only for reference and provide a clear, direct answer.
%s

Answer the question: %s`

const openAnswerPrompt = `You are a data assistant. There is no relevant data in the CSV for the question. ` +
	`Please answer the question using your own knowledge and reasoning: %s`
