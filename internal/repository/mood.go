package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultListLimit         = 10
	DefaultRunningMeansLimit = 20
	maxWeatherLen            = 100
)

// NewMoodLog is the input for CreateLog.
type NewMoodLog struct {
	UserID      uint
	MoodValue   int
	EnergyLevel int
	Notes       *string
	Weather     *string
}

// MoodLogPatch lists the fields EditMostRecentLog may change. Nil fields keep their value.
type MoodLogPatch struct {
	MoodValue   *int
	EnergyLevel *int
	Notes       *string
}

func (p MoodLogPatch) empty() bool {
	return p.MoodValue == nil && p.EnergyLevel == nil && p.Notes == nil
}

// Stats summarises a set of logs. Means are rounded to two decimals.
type Stats struct {
	AvgMood   float64 `json:"avg_mood"`
	AvgEnergy float64 `json:"avg_energy"`
	TotalLogs int64   `json:"total_logs"`
}

type WeatherStats struct {
	Weather   string  `json:"weather"`
	AvgMood   float64 `json:"avg_mood"`
	AvgEnergy float64 `json:"avg_energy"`
	TotalLogs int64   `json:"total_logs"`
}

type WeekdayStats struct {
	Day       string       `json:"day"`
	Weekday   time.Weekday `json:"-"`
	AvgMood   float64      `json:"avg_mood"`
	AvgEnergy float64      `json:"avg_energy"`
	TotalLogs int64        `json:"total_logs"`
}

// DailyAverage is the mean mood and energy of one UTC calendar day.
type DailyAverage struct {
	Date      string
	AvgMood   float64
	AvgEnergy float64
}

// RunningMean is the cumulative mean of daily averages up to and including Date.
type RunningMean struct {
	Date      string  `json:"date"`
	AvgMood   float64 `json:"avg_mood"`
	AvgEnergy float64 `json:"avg_energy"`
}

// MoodRepository stores and summarises mood logs, one user at a time.
type MoodRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMoodRepository(db *gorm.DB) *MoodRepository {
	return &MoodRepository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that timestamps new logs with now.
func (r *MoodRepository) WithClock(now func() time.Time) *MoodRepository {
	clone := *r
	clone.now = now
	return &clone
}

func validateScores(v validation.Violations, mood, energy *int) {
	if mood != nil {
		validation.RangeInt("mood_value", *mood, models.MinScore, models.MaxScore, v)
	}
	if energy != nil {
		validation.RangeInt("energy_level", *energy, models.MinScore, models.MaxScore, v)
	}
}

// CreateLog inserts a log stamped with the current UTC time.
// A missing user surfaces as ErrConflict through the foreign key.
func (r *MoodRepository) CreateLog(ctx context.Context, in NewMoodLog) (*models.MoodLog, error) {
	v := validation.Violations{}
	validateScores(v, &in.MoodValue, &in.EnergyLevel)
	if in.Weather != nil {
		validation.MaxLen("weather", *in.Weather, maxWeatherLen, v)
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	log := models.MoodLog{
		UserID:      in.UserID,
		MoodValue:   in.MoodValue,
		EnergyLevel: in.EnergyLevel,
		Notes:       in.Notes,
		Weather:     in.Weather,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return nil, storeErr("create mood log", err)
	}
	return &log, nil
}

func (r *MoodRepository) latest(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Model(&models.MoodLog{}).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
}

// EditMostRecentLog applies patch to the user's most recent log with a single
// conditional UPDATE and returns the row it changed.
func (r *MoodRepository) EditMostRecentLog(ctx context.Context, userID uint, patch MoodLogPatch) (*models.MoodLog, error) {
	v := validation.Violations{}
	validateScores(v, patch.MoodValue, patch.EnergyLevel)
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.MoodValue != nil {
		updates["mood_value"] = *patch.MoodValue
	}
	if patch.EnergyLevel != nil {
		updates["energy_level"] = *patch.EnergyLevel
	}
	if patch.Notes != nil {
		// Blank notes clear the column, matching what CreateLog stores for no notes.
		if notes := strings.TrimSpace(*patch.Notes); notes != "" {
			updates["notes"] = notes
		} else {
			updates["notes"] = nil
		}
	}

	var log models.MoodLog
	tx := r.db.WithContext(ctx)
	if patch.empty() {
		if err := r.latest(tx, userID).Take(&log).Error; err != nil {
			return nil, storeErr(fmt.Sprintf("edit mood log for user %d", userID), err)
		}
		return &log, nil
	}

	// RETURNING hands back the row this statement changed, even if a newer log
	// is inserted right after it.
	latestID := r.latest(tx, userID).Select("id").Limit(1)
	res := tx.Model(&log).Clauses(clause.Returning{}).Where("id = (?)", latestID).Updates(updates)
	if res.Error != nil {
		return nil, storeErr("edit mood log", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("edit mood log for user %d: %w", userID, ErrNotFound)
	}
	return &log, nil
}

// MostRecentLogDate returns the created_at of the user's latest log, or nil when there is none.
func (r *MoodRepository) MostRecentLogDate(ctx context.Context, userID uint) (*time.Time, error) {
	var logs []models.MoodLog
	if err := r.latest(r.db.WithContext(ctx), userID).Select("id", "created_at").Limit(1).Find(&logs).Error; err != nil {
		return nil, storeErr("most recent log date", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}
	t := logs[0].CreatedAt.UTC()
	return &t, nil
}

// LatestLog returns the user's most recent log, or nil when there is none.
func (r *MoodRepository) LatestLog(ctx context.Context, userID uint) (*models.MoodLog, error) {
	logs, err := r.ListLogs(ctx, userID, 1)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

// ListLogs returns up to limit logs, most recent first.
func (r *MoodRepository) ListLogs(ctx context.Context, userID uint, limit int) ([]models.MoodLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	logs := make([]models.MoodLog, 0, limit)
	if err := r.latest(r.db.WithContext(ctx), userID).Limit(limit).Find(&logs).Error; err != nil {
		return nil, storeErr("list mood logs", err)
	}
	return logs, nil
}

const aggregateColumns = "CAST(COALESCE(AVG(mood_value), 0) AS FLOAT) AS avg_mood, " +
	"CAST(COALESCE(AVG(energy_level), 0) AS FLOAT) AS avg_energy, " +
	"COUNT(id) AS total_logs"

type aggregateRow struct {
	Bucket    string
	AvgMood   float64
	AvgEnergy float64
	TotalLogs int64
}

// BasicStats averages every log of the user. No logs yields zeros.
func (r *MoodRepository) BasicStats(ctx context.Context, userID uint) (Stats, error) {
	var row aggregateRow
	err := r.db.WithContext(ctx).Model(&models.MoodLog{}).
		Select(aggregateColumns).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return Stats{}, storeErr("mood stats", err)
	}
	return Stats{AvgMood: round2(row.AvgMood), AvgEnergy: round2(row.AvgEnergy), TotalLogs: row.TotalLogs}, nil
}

// WeatherStats groups logs by weather label, ascending. Logs without weather are skipped.
func (r *MoodRepository) WeatherStats(ctx context.Context, userID uint) ([]WeatherStats, error) {
	var rows []aggregateRow
	err := r.db.WithContext(ctx).Model(&models.MoodLog{}).
		Select("weather AS bucket, "+aggregateColumns).
		Where("user_id = ? AND weather IS NOT NULL AND weather <> ''", userID).
		Group("weather").
		Order("weather ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("weather stats", err)
	}
	out := make([]WeatherStats, len(rows))
	for i, row := range rows {
		out[i] = WeatherStats{Weather: row.Bucket, AvgMood: round2(row.AvgMood), AvgEnergy: round2(row.AvgEnergy), TotalLogs: row.TotalLogs}
	}
	return out, nil
}

// weekOrder lists weekdays Monday first.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WeeklyStats buckets logs by the UTC weekday of created_at and always returns
// seven rows, Monday through Sunday.
func (r *MoodRepository) WeeklyStats(ctx context.Context, userID uint) ([]WeekdayStats, error) {
	var rows []aggregateRow
	err := r.db.WithContext(ctx).Model(&models.MoodLog{}).
		Select(r.isoWeekdayExpr()+" AS bucket, "+aggregateColumns).
		Where("user_id = ?", userID).
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("weekly stats", err)
	}
	byDay := make(map[string]aggregateRow, len(rows))
	for _, row := range rows {
		byDay[row.Bucket] = row
	}
	out := make([]WeekdayStats, len(weekOrder))
	for i, wd := range weekOrder {
		row := byDay[fmt.Sprint(i+1)]
		out[i] = WeekdayStats{
			Day:       wd.String(),
			Weekday:   wd,
			AvgMood:   round2(row.AvgMood),
			AvgEnergy: round2(row.AvgEnergy),
			TotalLogs: row.TotalLogs,
		}
	}
	return out, nil
}

// DailyAverages returns per-day means for up to limit days, most recent first.
func (r *MoodRepository) DailyAverages(ctx context.Context, userID uint, limit int) ([]DailyAverage, error) {
	if limit <= 0 {
		limit = DefaultRunningMeansLimit
	}
	var rows []aggregateRow
	err := r.db.WithContext(ctx).Model(&models.MoodLog{}).
		Select(r.dayExpr()+" AS bucket, "+aggregateColumns).
		Where("user_id = ?", userID).
		Group("bucket").
		Order("bucket DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("daily averages", err)
	}
	out := make([]DailyAverage, len(rows))
	for i, row := range rows {
		out[i] = DailyAverage{Date: row.Bucket, AvgMood: row.AvgMood, AvgEnergy: row.AvgEnergy}
	}
	return out, nil
}

// RunningMeans walks back from the most recent day over up to limit days and
// reports the unweighted mean of the daily averages seen so far.
func (r *MoodRepository) RunningMeans(ctx context.Context, userID uint, limit int) ([]RunningMean, error) {
	daily, err := r.DailyAverages(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return CumulativeMeans(daily), nil
}

// CumulativeMeans computes the running mean of daily averages in the given order.
// Each entry is rounded on its own; the sums carry full precision.
func CumulativeMeans(daily []DailyAverage) []RunningMean {
	out := make([]RunningMean, 0, len(daily))
	var moodSum, energySum float64
	for i, d := range daily {
		moodSum += d.AvgMood
		energySum += d.AvgEnergy
		n := float64(i + 1)
		out = append(out, RunningMean{
			Date:      d.Date,
			AvgMood:   round2(moodSum / n),
			AvgEnergy: round2(energySum / n),
		})
	}
	return out
}

// ClearLogs deletes every log of the user. Clearing an empty history is not an error.
func (r *MoodRepository) ClearLogs(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.MoodLog{}).Error
	return storeErr("clear mood logs", err)
}

// dayExpr yields the UTC calendar day of created_at as YYYY-MM-DD text.
func (r *MoodRepository) dayExpr() string {
	if r.db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-%m-%d', created_at)"
	}
	return "to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
}

// isoWeekdayExpr yields the UTC ISO weekday of created_at (1 = Monday .. 7 = Sunday) as text.
func (r *MoodRepository) isoWeekdayExpr() string {
	if r.db.Dialector.Name() == "sqlite" {
		return "CAST(((CAST(strftime('%w', created_at) AS INTEGER) + 6) % 7) + 1 AS TEXT)"
	}
	return "CAST(EXTRACT(ISODOW FROM created_at AT TIME ZONE 'UTC') AS INTEGER)::text"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
