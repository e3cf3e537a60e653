package recalibration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

// EnsureSchedules creates the daily and weekly recalibration schedules.
// Existing schedules are left untouched; an empty cron skips that pass.
func EnsureSchedules(ctx context.Context, c temporalsdkclient.Client, taskQueue, dailyCron, weeklyCron string) error {
	specs := []struct {
		id, pass, cron string
	}{
		{DailyScheduleID, services.PassDaily, dailyCron},
		{WeeklyScheduleID, services.PassWeekly, weeklyCron},
	}
	for _, s := range specs {
		if strings.TrimSpace(s.cron) == "" {
			continue
		}
		_, err := c.ScheduleClient().Create(ctx, temporalsdkclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalsdkclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalsdkclient.ScheduleWorkflowAction{
				ID:        s.id + "-run",
				Workflow:  WorkflowName,
				Args:      []interface{}{Input{Pass: s.pass}},
				TaskQueue: taskQueue,
			},
		})
		if err != nil && !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			return fmt.Errorf("recalibration: create schedule %s: %w", s.id, err)
		}
	}
	return nil
}
