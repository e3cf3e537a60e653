package recalibration

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

func Workflow(ctx workflow.Context, in Input) (services.RecalibrationReport, error) {
	in.Pass = strings.ToLower(strings.TrimSpace(in.Pass))
	if in.Pass == "" {
		return services.RecalibrationReport{}, fmt.Errorf("recalibration: missing pass")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	var rep services.RecalibrationReport
	if err := workflow.ExecuteActivity(ctx, ActivityRunPass, in).Get(ctx, &rep); err != nil {
		return services.RecalibrationReport{}, err
	}
	workflow.GetLogger(ctx).Info("recalibration pass complete",
		"pass", rep.Pass,
		"attempted", rep.Attempted,
		"calibrated", rep.Calibrated,
		"failed", rep.Failed,
	)
	return rep, nil
}

func workflowRegisterOptions() workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: WorkflowName}
}

// Register adds the workflow and its activity to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(Workflow, workflowRegisterOptions())
	w.RegisterActivityWithOptions(acts.RunPass, activity.RegisterOptions{Name: ActivityRunPass})
}
