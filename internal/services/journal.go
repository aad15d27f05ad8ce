package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/repository"
)

const dashboardRecentLogs = 5

// JournalEntry is what the journal form submits.
type JournalEntry struct {
	MoodValue   int
	EnergyLevel int
	Notes       string
	Weather     string
}

// Dashboard gathers what the dashboard page shows.
type Dashboard struct {
	Stats       repository.Stats
	Recent      []models.MoodLog
	Today       *models.MoodLog
	LoggedToday bool
}

// JournalService keeps one journal entry per user and UTC day.
type JournalService struct {
	moods *repository.MoodRepository
	now   func() time.Time
}

func NewJournalService(moods *repository.MoodRepository) *JournalService {
	return &JournalService{moods: moods, now: time.Now}
}

// WithClock returns a copy that reads the current time from now, for both
// the day check and the timestamp of new logs.
func (s *JournalService) WithClock(now func() time.Time) *JournalService {
	return &JournalService{moods: s.moods.WithClock(now), now: now}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Today returns the user's log for the current UTC day, or nil.
func (s *JournalService) Today(ctx context.Context, userID uint) (*models.MoodLog, error) {
	latest, err := s.moods.LatestLog(ctx, userID)
	if err != nil || latest == nil || !latest.LoggedOn(s.now()) {
		return nil, err
	}
	return latest, nil
}

// Record creates today's entry, or edits it when the user already logged today.
// created reports which of the two happened.
func (s *JournalService) Record(ctx context.Context, userID uint, e JournalEntry) (log *models.MoodLog, created bool, err error) {
	last, err := s.moods.MostRecentLogDate(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if last != nil && last.Format(time.DateOnly) == s.now().UTC().Format(time.DateOnly) {
		// Weather stays as first recorded: the form shows it read-only once today is logged.
		log, err = s.moods.EditMostRecentLog(ctx, userID, repository.MoodLogPatch{
			MoodValue:   &e.MoodValue,
			EnergyLevel: &e.EnergyLevel,
			Notes:       &e.Notes,
		})
		return log, false, err
	}
	log, err = s.moods.CreateLog(ctx, repository.NewMoodLog{
		UserID:      userID,
		MoodValue:   e.MoodValue,
		EnergyLevel: e.EnergyLevel,
		Notes:       optional(e.Notes),
		Weather:     optional(e.Weather),
	})
	return log, err == nil, err
}

func (s *JournalService) Dashboard(ctx context.Context, userID uint) (Dashboard, error) {
	stats, err := s.moods.BasicStats(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.moods.ListLogs(ctx, userID, dashboardRecentLogs)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Stats: stats, Recent: recent}
	if len(recent) > 0 && recent[0].LoggedOn(s.now()) {
		d.Today = &recent[0]
		d.LoggedToday = true
	}
	return d, nil
}

// Analytics gathers the chart data for the analytics page.
type Analytics struct {
	Weather      []repository.WeatherStats
	Weekly       []repository.WeekdayStats
	RunningMeans []repository.RunningMean
}

func (s *JournalService) Analytics(ctx context.Context, userID uint) (Analytics, error) {
	weather, err := s.moods.WeatherStats(ctx, userID)
	if err != nil {
		return Analytics{}, err
	}
	weekly, err := s.moods.WeeklyStats(ctx, userID)
	if err != nil {
		return Analytics{}, err
	}
	means, err := s.moods.RunningMeans(ctx, userID, repository.DefaultRunningMeansLimit)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{Weather: weather, Weekly: weekly, RunningMeans: means}, nil
}
