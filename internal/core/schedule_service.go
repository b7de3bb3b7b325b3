package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// scheduleService implements the ScheduleService interface.
// Every mutation reads the whole schedule, edits a copy and writes it back. Only the
// day a mutation touches is validated.
type scheduleService struct {
	sync TripSyncService
}

// NewScheduleService creates a new ScheduleService instance.
func NewScheduleService(sync TripSyncService) ScheduleService {
	return &scheduleService{sync: sync}
}

// Get returns the current schedule. A missing document or field yields an empty schedule.
func (s *scheduleService) Get(ctx context.Context) (models.Schedule, error) {
	fv, err := s.sync.GetField(ctx, models.FieldSchedule)
	if err != nil {
		return nil, err
	}
	schedule := models.Schedule{}
	if err := fv.Decode(&schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if schedule == nil {
		schedule = models.Schedule{}
	}
	return schedule, nil
}

// AddDate adds an empty day.
func (s *scheduleService) AddDate(ctx context.Context, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	schedule, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if _, ok := schedule[date]; ok {
		return fmt.Errorf("%w: %s", ErrDateExists, date)
	}
	schedule[date] = models.DefaultDay()
	return s.sync.UpdateScheduleDays(ctx, schedule, date)
}

// RenameDate moves a day, items and metadata included, to another date key.
func (s *scheduleService) RenameDate(ctx context.Context, from, to string) error {
	if err := validateDate(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	schedule, err := s.Get(ctx)
	if err != nil {
		return err
	}
	day, ok := schedule[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDateNotFound, from)
	}
	if _, exists := schedule[to]; exists {
		return fmt.Errorf("%w: %s", ErrDateExists, to)
	}
	delete(schedule, from)
	schedule[to] = day
	return s.sync.UpdateScheduleDays(ctx, schedule, to)
}

// DeleteDate removes a day and all of its items.
func (s *scheduleService) DeleteDate(ctx context.Context, date string) error {
	schedule, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if _, ok := schedule[date]; !ok {
		return fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	delete(schedule, date)
	return s.sync.UpdateScheduleDays(ctx, schedule)
}

// UpdateMetadata replaces a day's metadata. The day is created if it does not exist yet.
func (s *scheduleService) UpdateMetadata(ctx context.Context, date string, metadata models.DayMetadata) error {
	if err := validateDate(date); err != nil {
		return err
	}
	schedule, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if metadata.LocationName == "" {
		metadata.LocationName = models.UnsetLocationName
	}
	if metadata.Forecast == nil {
		metadata.Forecast = []models.WeatherInfo{}
	}
	day := schedule.Day(date)
	day.Metadata = metadata
	schedule[date] = day
	return s.sync.UpdateScheduleDays(ctx, schedule, date)
}

// UpsertItem replaces the item with the same id, or appends it to the day.
// An item without an id gets a generated one.
func (s *scheduleService) UpsertItem(ctx context.Context, date string, item models.ScheduleItem) (*models.ScheduleItem, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := validateItem(date, item); err != nil {
		return nil, err
	}
	schedule, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	day := schedule.Day(date)
	replaced := false
	for i := range day.Items {
		if day.Items[i].ID == item.ID {
			day.Items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		day.Items = append(day.Items, item)
	}
	schedule[date] = day
	if err := s.sync.UpdateScheduleDays(ctx, schedule, date); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes one item from a day.
func (s *scheduleService) DeleteItem(ctx context.Context, date, itemID string) error {
	schedule, err := s.Get(ctx)
	if err != nil {
		return err
	}
	day, ok := schedule[date]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	items := make([]models.ScheduleItem, 0, len(day.Items))
	for _, it := range day.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	if len(items) == len(day.Items) {
		return fmt.Errorf("%w: '%s' on %s", ErrItemNotFound, itemID, date)
	}
	day.Items = items
	schedule[date] = day
	return s.sync.UpdateScheduleDays(ctx, schedule)
}

// ShiftTimes moves every item of a day by minutes, wrapping around midnight.
func (s *scheduleService) ShiftTimes(ctx context.Context, date string, minutes int) (*models.DayData, error) {
	schedule, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	day, ok := schedule[date]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	for i := range day.Items {
		day.Items[i].Time = models.ShiftTime(day.Items[i].Time, minutes)
	}
	schedule[date] = day
	if err := s.sync.UpdateScheduleDays(ctx, schedule, date); err != nil {
		return nil, err
	}
	return &day, nil
}

// Countdown computes the days-until-departure banner for now.
func (s *scheduleService) Countdown(ctx context.Context, now time.Time) (models.Countdown, error) {
	schedule, err := s.Get(ctx)
	if err != nil {
		return models.Countdown{}, err
	}
	return schedule.CountdownFrom(now), nil
}
