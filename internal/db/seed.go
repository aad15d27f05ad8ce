package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/mindfuly/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DemoUserName     = "demo"
	DemoUserEmail    = "demo@mindfuly.local"
	DemoUserPassword = "demo1234"
	demoDays         = 14
)

var demoWeather = []string{"sunny", "cloudy", "rainy", "sunny", "snowy", "", "cloudy"}

// Seed creates a demo account with two weeks of mood logs. It is idempotent:
// an existing demo user is left untouched.
func Seed(ctx context.Context, conn *gorm.DB, now time.Time) error {
	tx := conn.WithContext(ctx)
	var existing models.User
	err := tx.Where("name = ?", DemoUserName).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up demo user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return tx.Transaction(func(tx *gorm.DB) error {
		user := models.User{Name: DemoUserName, Email: DemoUserEmail, HashedPassword: string(hash), Tier: models.TierBasic}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create demo user: %w", err)
		}
		logs := make([]models.MoodLog, 0, demoDays)
		for i := demoDays - 1; i >= 1; i-- {
			var weather *string
			if w := demoWeather[i%len(demoWeather)]; w != "" {
				weather = &w
			}
			logs = append(logs, models.MoodLog{
				UserID:      user.ID,
				MoodValue:   1 + (i*3)%5,
				EnergyLevel: 1 + (i*2)%5,
				Weather:     weather,
				CreatedAt:   now.UTC().AddDate(0, 0, -i),
			})
		}
		return tx.Create(&logs).Error
	})
}
