package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kartr/kartr/api/types"
	"github.com/kartr/kartr/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidDate     = errors.New("start_date must be YYYY-MM-DD")
)

const (
	dateLayout         = "2006-01-02"
	rentalConfirmed    = "confirmed"
	subscriptionActive = "active"
	conversionValue    = 50.0
)

type Store interface {
	AddRental(ctx context.Context, r *store.Rental) error
	RentalByID(ctx context.Context, id string) (*store.Rental, error)
	RentalsByUser(ctx context.Context, userID int64) ([]store.Rental, error)
	AddSubscription(ctx context.Context, sub *store.Subscription) error
	SubscriptionByID(ctx context.Context, id string) (*store.Subscription, error)
	SubscriptionsByUser(ctx context.Context, userID int64) ([]store.Subscription, error)
}

// Service sells a fixed catalog of virtual influencers and social media
// agents. Only the purchases are persisted.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(st Store) *Service {
	return &Service{store: st, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Influencers() []VirtualInfluencer {
	return append([]VirtualInfluencer(nil), virtualInfluencers...)
}

func (s *Service) Influencer(id string) (*VirtualInfluencer, error) {
	for i := range virtualInfluencers {
		if virtualInfluencers[i].ID == id {
			vi := virtualInfluencers[i]
			return &vi, nil
		}
	}
	return nil, fmt.Errorf("virtual influencer %s: %w", id, ErrNotFound)
}

func (s *Service) Agents() []Agent {
	return append([]Agent(nil), agents...)
}

func (s *Service) Agent(id string) (*Agent, error) {
	for i := range agents {
		if agents[i].ID == id {
			a := agents[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
}

type RentalConfirmation struct {
	RentalID       string  `json:"rental_id"`
	InfluencerName string  `json:"influencer_name"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	TotalCost      float64 `json:"total_cost"`
	Status         string  `json:"status"`
}

func (s *Service) Rent(ctx context.Context, userID int64, req types.RentalRequest) (*RentalConfirmation, error) {
	vi, err := s.Influencer(req.InfluencerID)
	if err != nil {
		return nil, err
	}
	if req.DurationDays <= 0 {
		return nil, ErrInvalidDuration
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	r := &store.Rental{
		ID:                  uuid.New().String(),
		UserID:              userID,
		InfluencerID:        vi.ID,
		StartDate:           req.StartDate,
		EndDate:             start.AddDate(0, 0, req.DurationDays).Format(dateLayout),
		DurationDays:        req.DurationDays,
		CampaignName:        req.CampaignName,
		CampaignDescription: req.CampaignDescription,
		TotalCost:           vi.DailyRate * float64(req.DurationDays),
		Status:              rentalConfirmed,
	}
	if err := s.store.AddRental(ctx, r); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"rental_id": r.ID, "influencer": vi.ID, "user_id": userID}).Info("Virtual influencer rented")
	return &RentalConfirmation{
		RentalID:       r.ID,
		InfluencerName: vi.Name,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		TotalCost:      r.TotalCost,
		Status:         r.Status,
	}, nil
}

func (s *Service) Rentals(ctx context.Context, userID int64) ([]store.Rental, error) {
	return s.store.RentalsByUser(ctx, userID)
}

type CampaignMetrics struct {
	RentalID             string  `json:"rental_id"`
	InfluencerName       string  `json:"influencer_name"`
	CampaignDuration     int     `json:"campaign_duration"`
	EstimatedImpressions int64   `json:"estimated_impressions"`
	EstimatedEngagements int64   `json:"estimated_engagements"`
	EstimatedClicks      int64   `json:"estimated_clicks"`
	EstimatedConversions int64   `json:"estimated_conversions"`
	ROIFactor            float64 `json:"roi_factor"`
}

// CampaignMetrics estimates the reach of a rental owned by userID. Rentals of
// other users are reported as not found.
func (s *Service) CampaignMetrics(ctx context.Context, userID int64, rentalID string) (*CampaignMetrics, error) {
	r, err := s.store.RentalByID(ctx, rentalID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && r.UserID != userID) {
		return nil, fmt.Errorf("rental %s: %w", rentalID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	vi, err := s.Influencer(r.InfluencerID)
	if err != nil {
		return nil, err
	}

	impressions := float64(vi.Followers) * float64(r.DurationDays) * 0.7
	engagements := impressions * (vi.EngagementRate / 100)
	clicks := engagements * 0.15
	conversions := clicks * 0.03

	m := &CampaignMetrics{
		RentalID:             r.ID,
		InfluencerName:       vi.Name,
		CampaignDuration:     r.DurationDays,
		EstimatedImpressions: int64(impressions),
		EstimatedEngagements: int64(engagements),
		EstimatedClicks:      int64(clicks),
		EstimatedConversions: int64(conversions),
	}
	if r.TotalCost > 0 {
		m.ROIFactor = round(conversions*conversionValue/r.TotalCost, 2)
	}
	return m, nil
}

type SubscriptionConfirmation struct {
	SubscriptionID string  `json:"subscription_id"`
	AgentName      string  `json:"agent_name"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	TotalCost      float64 `json:"total_cost"`
	Status         string  `json:"status"`
}

// Subscribe starts a subscription today. A month counts as 30 days.
func (s *Service) Subscribe(ctx context.Context, userID int64, req types.SubscriptionRequest) (*SubscriptionConfirmation, error) {
	a, err := s.Agent(req.AgentID)
	if err != nil {
		return nil, err
	}
	if req.Months <= 0 {
		return nil, ErrInvalidDuration
	}
	start := s.now()

	sub := &store.Subscription{
		ID:             uuid.New().String(),
		UserID:         userID,
		AgentID:        a.ID,
		StartDate:      start.Format(dateLayout),
		EndDate:        start.AddDate(0, 0, 30*req.Months).Format(dateLayout),
		Months:         req.Months,
		Platforms:      req.Platforms,
		AccountDetails: req.AccountDetails,
		TotalCost:      a.MonthlyRate * float64(req.Months),
		Status:         subscriptionActive,
	}
	if err := s.store.AddSubscription(ctx, sub); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"subscription_id": sub.ID, "agent": a.ID, "user_id": userID}).Info("Agent subscription started")
	return &SubscriptionConfirmation{
		SubscriptionID: sub.ID,
		AgentName:      a.Name,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		TotalCost:      sub.TotalCost,
		Status:         sub.Status,
	}, nil
}

func (s *Service) Subscriptions(ctx context.Context, userID int64) ([]store.Subscription, error) {
	return s.store.SubscriptionsByUser(ctx, userID)
}

type PerformanceReport struct {
	SubscriptionID     string   `json:"subscription_id"`
	AgentName          string   `json:"agent_name"`
	DaysActive         int      `json:"days_active"`
	PlatformsManaged   []string `json:"platforms_managed"`
	ContentCreated     int      `json:"content_created"`
	EngagementsHandled int      `json:"engagements_handled"`
	AudienceGrowth     string   `json:"audience_growth"`
	SentimentScore     float64  `json:"sentiment_score"`
	ROIEstimate        string   `json:"roi_estimate"`

	PostEngagementRate  string   `json:"post_engagement_rate,omitempty"`
	OptimalPostingTimes []string `json:"optimal_posting_times,omitempty"`

	ResponseTime           string `json:"response_time,omitempty"`
	PositiveSentimentRatio string `json:"positive_sentiment_ratio,omitempty"`
}

// PerformanceReport simulates what the agent achieved since the
// subscription started.
func (s *Service) PerformanceReport(ctx context.Context, userID int64, subscriptionID string) (*PerformanceReport, error) {
	sub, err := s.store.SubscriptionByID(ctx, subscriptionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sub.UserID != userID) {
		return nil, fmt.Errorf("subscription %s: %w", subscriptionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	a, err := s.Agent(sub.AgentID)
	if err != nil {
		return nil, err
	}
	start, err := time.ParseInLocation(dateLayout, sub.StartDate, s.now().Location())
	if err != nil {
		return nil, fmt.Errorf("subscription %s has a bad start date: %w", sub.ID, err)
	}
	days := max(0, int(s.now().Sub(start).Hours()/24))
	d := float64(days)

	rep := &PerformanceReport{
		SubscriptionID:     sub.ID,
		AgentName:          a.Name,
		DaysActive:         days,
		PlatformsManaged:   sub.Platforms,
		ContentCreated:     int(d * 2.5),
		EngagementsHandled: days * 25,
		AudienceGrowth:     strconv.Itoa(int(d*0.5)) + "%",
		SentimentScore:     round(math.Min(4.5, 3.5+d*0.01), 1),
		ROIEstimate:        formatFloat(round(100+d*0.2, 1)) + "%",
	}
	switch a.Specialty {
	case specialtyContent:
		rep.PostEngagementRate = formatFloat(round(3.2+d*0.02, 1)) + "%"
		rep.OptimalPostingTimes = []string{"10:30 AM", "5:45 PM", "8:15 PM"}
	case specialtyEngagement:
		if d*0.1 >= 10 {
			rep.ResponseTime = "2 minutes"
		} else {
			rep.ResponseTime = formatFloat(round(12-d*0.1, 1)) + " minutes"
		}
		if ratio := 75 + d*0.2; ratio >= 92 {
			rep.PositiveSentimentRatio = "92%"
		} else {
			rep.PositiveSentimentRatio = formatFloat(ratio) + "%"
		}
	}
	return rep, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// formatFloat prints the shortest representation, always with a decimal
// point: 100 -> "100.0", 3.25 -> "3.25".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
