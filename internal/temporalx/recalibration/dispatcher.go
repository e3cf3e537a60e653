package recalibration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

// Dispatcher runs an on-demand pass as a workflow and waits for its report.
type Dispatcher struct {
	Client    temporalsdkclient.Client
	TaskQueue string
}

func (d *Dispatcher) RunPass(ctx context.Context, pass string) (services.RecalibrationReport, error) {
	pass = strings.ToLower(strings.TrimSpace(pass))
	run, err := d.Client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("item-recalibration-%s-%s", pass, uuid.NewString()),
		TaskQueue: d.TaskQueue,
	}, WorkflowName, Input{Pass: pass})
	if err != nil {
		return services.RecalibrationReport{}, fmt.Errorf("recalibration: start workflow: %w", err)
	}
	var rep services.RecalibrationReport
	if err := run.Get(ctx, &rep); err != nil {
		return services.RecalibrationReport{}, err
	}
	return rep, nil
}
