package marketplace

type VirtualInfluencer struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Specialty      string  `json:"specialty"`
	Followers      int64   `json:"followers"`
	EngagementRate float64 `json:"engagement_rate"`
	DailyRate      float64 `json:"daily_rate"`
	Description    string  `json:"description"`
	ImageURL       string  `json:"image_url"`
}

type Agent struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Specialty          string   `json:"specialty"`
	Features           []string `json:"features"`
	MonthlyRate        float64  `json:"monthly_rate"`
	Description        string   `json:"description"`
	SupportedPlatforms []string `json:"supported_platforms"`
}

const (
	specialtyContent    = "Content Creation & Scheduling"
	specialtyEngagement = "Audience Engagement"
)

var virtualInfluencers = []VirtualInfluencer{
	{
		ID: "vi_001", Name: "Luna Virtual", Specialty: "Fashion & Lifestyle",
		Followers: 1250000, EngagementRate: 4.8, DailyRate: 1200,
		Description: "Luna is a digital fashion icon known for her trendsetting style and authentic brand partnerships.",
		ImageURL:    "https://example.com/luna.jpg",
	},
	{
		ID: "vi_002", Name: "Nexus Gaming", Specialty: "Gaming & Tech",
		Followers: 2100000, EngagementRate: 5.7, DailyRate: 1800,
		Description: "Nexus is a virtual gaming personality who specializes in game reviews, tech unboxings, and eSports commentary.",
		ImageURL:    "https://example.com/nexus.jpg",
	},
	{
		ID: "vi_003", Name: "Vela Beauty", Specialty: "Beauty & Cosmetics",
		Followers: 980000, EngagementRate: 6.2, DailyRate: 950,
		Description: "Vela is a digital beauty influencer who tests the latest cosmetic products and shares makeup tutorials.",
		ImageURL:    "https://example.com/vela.jpg",
	},
	{
		ID: "vi_004", Name: "Aero Travel", Specialty: "Travel & Adventure",
		Followers: 1450000, EngagementRate: 5.3, DailyRate: 1300,
		Description: "Aero is a virtual travel blogger who showcases exotic destinations and adventure experiences.",
		ImageURL:    "https://example.com/aero.jpg",
	},
	{
		ID: "vi_005", Name: "Chef Pixel", Specialty: "Food & Cooking",
		Followers: 750000, EngagementRate: 7.1, DailyRate: 850,
		Description: "Chef Pixel is a digital culinary expert who shares innovative recipes and cooking techniques.",
		ImageURL:    "https://example.com/pixel.jpg",
	},
}

var agents = []Agent{
	{
		ID: "agent_001", Name: "ContentPro", Specialty: specialtyContent,
		Features:           []string{"AI-driven content generation", "Automated posting", "Content calendar"},
		MonthlyRate:        299,
		Description:        "ContentPro creates and schedules engaging posts across all your social platforms using advanced AI.",
		SupportedPlatforms: []string{"Instagram", "Twitter", "Facebook", "LinkedIn"},
	},
	{
		ID: "agent_002", Name: "EngageBot", Specialty: specialtyEngagement,
		Features:           []string{"24/7 comment responses", "DM management", "Sentiment analysis"},
		MonthlyRate:        199,
		Description:        "EngageBot handles all audience interactions, responding to comments and messages around the clock.",
		SupportedPlatforms: []string{"Instagram", "Twitter", "Facebook", "TikTok"},
	},
	{
		ID: "agent_003", Name: "TrendWatcher", Specialty: "Trend Analysis & Optimization",
		Features:           []string{"Real-time trend detection", "Hashtag optimization", "Performance analytics"},
		MonthlyRate:        249,
		Description:        "TrendWatcher keeps your content relevant by analyzing trends and suggesting optimizations.",
		SupportedPlatforms: []string{"Instagram", "Twitter", "TikTok"},
	},
	{
		ID: "agent_004", Name: "CommunityBuilder", Specialty: "Community Growth & Management",
		Features:           []string{"Follower growth strategies", "Community management", "Influencer outreach"},
		MonthlyRate:        349,
		Description:        "CommunityBuilder focuses on growing your audience and nurturing your online community.",
		SupportedPlatforms: []string{"Instagram", "Twitter", "Facebook", "Discord"},
	},
	{
		ID: "agent_005", Name: "CrisisManager", Specialty: "Brand Protection & Crisis Management",
		Features:           []string{"Reputation monitoring", "Crisis detection", "Response planning"},
		MonthlyRate:        399,
		Description:        "CrisisManager protects your brand reputation and helps navigate social media crises.",
		SupportedPlatforms: []string{"All major platforms"},
	},
}
