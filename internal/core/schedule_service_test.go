package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

func TestScheduleService_Dates(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()

	require.NoError(t, svc.AddDate(ctx, "2025-06-03"))
	require.NoError(t, svc.AddDate(ctx, "2025-06-01"))
	assert.ErrorIs(t, svc.AddDate(ctx, "2025-06-01"), ErrDateExists)
	assert.ErrorIs(t, svc.AddDate(ctx, "06/01/2025"), ErrValidation)

	schedule, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01", "2025-06-03"}, schedule.Dates())
	assert.Equal(t, models.DefaultDay(), schedule["2025-06-01"])

	require.NoError(t, svc.RenameDate(ctx, "2025-06-03", "2025-06-02"))
	assert.ErrorIs(t, svc.RenameDate(ctx, "2025-07-01", "2025-07-02"), ErrDateNotFound)
	assert.ErrorIs(t, svc.RenameDate(ctx, "2025-06-01", "2025-06-02"), ErrDateExists)

	require.NoError(t, svc.DeleteDate(ctx, "2025-06-01"))
	assert.ErrorIs(t, svc.DeleteDate(ctx, "2025-06-01"), ErrDateNotFound)

	schedule, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-02"}, schedule.Dates())
}

func TestScheduleService_Items(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()
	date := "2025-06-02"

	ferry, err := svc.UpsertItem(ctx, date, models.ScheduleItem{Time: "09:30", Title: "Ferry", Category: models.CategoryTransport})
	require.NoError(t, err)
	assert.NotEmpty(t, ferry.ID)

	_, err = svc.UpsertItem(ctx, date, models.ScheduleItem{ID: "lunch", Time: "12:00", Title: "Lunch", Category: models.CategoryFood})
	require.NoError(t, err)

	ferry.Title = "Ferry to Tallinn"
	_, err = svc.UpsertItem(ctx, date, *ferry)
	require.NoError(t, err)

	schedule, err := svc.Get(ctx)
	require.NoError(t, err)
	day := schedule[date]
	require.Len(t, day.Items, 2)
	assert.Equal(t, "Ferry to Tallinn", day.Items[0].Title)
	assert.Equal(t, "lunch", day.Items[1].ID)
	assert.Equal(t, models.UnsetLocationName, day.Metadata.LocationName)

	_, err = svc.UpsertItem(ctx, date, models.ScheduleItem{ID: "bad", Time: "9am"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteItem(ctx, date, "lunch"))
	assert.ErrorIs(t, svc.DeleteItem(ctx, date, "lunch"), ErrItemNotFound)
	assert.ErrorIs(t, svc.DeleteItem(ctx, "2025-08-01", "lunch"), ErrDateNotFound)
}

func TestScheduleService_UpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()

	require.NoError(t, svc.UpdateMetadata(ctx, "2025-06-04", models.DayMetadata{
		LocationName: "Rovaniemi",
		Forecast:     []models.WeatherInfo{{Time: "12:00", Temp: 14.5, FeelsLike: 12, Condition: "Cloudy"}},
		IsLive:       true,
	}))
	require.NoError(t, svc.UpdateMetadata(ctx, "2025-06-05", models.DayMetadata{}))

	schedule, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rovaniemi", schedule["2025-06-04"].Metadata.LocationName)
	assert.True(t, schedule["2025-06-04"].Metadata.IsLive)
	assert.Equal(t, 14.5, schedule["2025-06-04"].Metadata.Forecast[0].Temp)
	assert.Equal(t, models.UnsetLocationName, schedule["2025-06-05"].Metadata.LocationName)
	assert.NotNil(t, schedule["2025-06-05"].Metadata.Forecast)
}

func TestScheduleService_ShiftTimes(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()
	date := "2025-06-02"

	require.NoError(t, env.sync.UpdateSchedule(ctx, models.Schedule{
		date: {Items: []models.ScheduleItem{
			{ID: "a", Time: "23:30"},
			{ID: "b", Time: ""},
			{ID: "c", Time: "08:15"},
		}, Metadata: models.DefaultDay().Metadata},
	}))

	day, err := svc.ShiftTimes(ctx, date, 45)
	require.NoError(t, err)
	assert.Equal(t, "00:15", day.Items[0].Time)
	assert.Equal(t, "12:00", day.Items[1].Time)
	assert.Equal(t, "09:00", day.Items[2].Time)

	day, err = svc.ShiftTimes(ctx, date, -60)
	require.NoError(t, err)
	assert.Equal(t, "23:15", day.Items[0].Time)
	assert.Equal(t, "11:00", day.Items[1].Time)

	_, err = svc.ShiftTimes(ctx, "2025-09-09", 10)
	assert.ErrorIs(t, err, ErrDateNotFound)
}

func TestScheduleService_StoredInvalidDayOnlyBlocksItself(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()

	// Written by another client that accepts categories this server does not.
	require.NoError(t, env.store.MergeField(ctx, models.FieldSchedule.String(), map[string]interface{}{
		"2025-06-02": map[string]interface{}{
			"items":    []interface{}{map[string]interface{}{"id": "old", "time": "9am", "category": "Sightseeing"}},
			"metadata": map[string]interface{}{"locationName": "Tromsø"},
		},
	}))

	_, err := svc.UpsertItem(ctx, "2025-06-03", models.ScheduleItem{Time: "10:00", Title: "Fjord cruise"})
	require.NoError(t, err)
	require.NoError(t, svc.AddDate(ctx, "2025-06-04"))
	require.NoError(t, svc.UpdateMetadata(ctx, "2025-06-03", models.DayMetadata{LocationName: "Senja"}))

	schedule, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, schedule, 3)
	assert.Equal(t, models.Category("Sightseeing"), schedule["2025-06-02"].Items[0].Category)

	_, err = svc.UpsertItem(ctx, "2025-06-02", models.ScheduleItem{Time: "11:00", Title: "Museum"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteItem(ctx, "2025-06-02", "old"))
	_, err = svc.UpsertItem(ctx, "2025-06-02", models.ScheduleItem{Time: "11:00", Title: "Museum"})
	assert.NoError(t, err)
}

func TestScheduleService_Countdown(t *testing.T) {
	env := newTestEnv(t)
	svc := NewScheduleService(env.sync)
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

	c, err := svc.Countdown(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, models.CountdownUnscheduled, c.State)

	require.NoError(t, svc.AddDate(ctx, "2025-06-01"))
	c, err = svc.Countdown(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, models.CountdownUpcoming, c.State)
	assert.Equal(t, 11, c.Days)
	assert.Equal(t, "距離出發還有 11 天", c.Message)

	c, err = svc.Countdown(ctx, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, models.CountdownInProgress, c.State)
}
