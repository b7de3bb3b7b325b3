package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

func validateMembers(members []models.Member) error {
	seen := make(map[string]struct{}, len(members))
	for i, m := range members {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("%w: member %d has no id", ErrValidation, i)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate member id '%s'", ErrValidation, m.ID)
		}
		seen[m.ID] = struct{}{}
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: member '%s' has no name", ErrValidation, m.ID)
		}
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: '%s' is not an ISO date (YYYY-MM-DD)", ErrValidation, date)
	}
	return nil
}

func validateItem(date string, item models.ScheduleItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: item on %s has no id", ErrValidation, date)
	}
	if item.Time != "" {
		if _, err := time.Parse("15:04", item.Time); err != nil {
			return fmt.Errorf("%w: item '%s' on %s has invalid time '%s'", ErrValidation, item.ID, date, item.Time)
		}
	}
	if !item.Category.Valid() {
		return fmt.Errorf("%w: item '%s' on %s has unknown category '%s'", ErrValidation, item.ID, date, item.Category)
	}
	return nil
}

func validateSchedule(schedule models.Schedule) error {
	for date, day := range schedule {
		if err := validateDay(date, day); err != nil {
			return err
		}
	}
	return nil
}

// validateDays checks only the listed days. Dates missing from schedule are skipped.
func validateDays(schedule models.Schedule, dates ...string) error {
	for _, date := range dates {
		day, ok := schedule[date]
		if !ok {
			continue
		}
		if err := validateDay(date, day); err != nil {
			return err
		}
	}
	return nil
}

func validateDay(date string, day models.DayData) error {
	if err := validateDate(date); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(day.Items))
	for _, item := range day.Items {
		if err := validateItem(date, item); err != nil {
			return err
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate item id '%s' on %s", ErrValidation, item.ID, date)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func validateDriveURL(driveURL string) error {
	if driveURL == "" {
		return nil
	}
	u, err := url.Parse(driveURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: drive url must be an absolute http(s) URL", ErrValidation)
	}
	return nil
}
