package recalibration

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

type Activities struct {
	Log         *logger.Logger
	Calibration services.CalibrationService
}

// RunPass executes one batch pass. Configuration errors (an unknown pass
// name) are not retried.
func (a *Activities) RunPass(ctx context.Context, in Input) (services.RecalibrationReport, error) {
	if a == nil || a.Calibration == nil {
		return services.RecalibrationReport{}, fmt.Errorf("recalibration: activity not configured")
	}
	info := activity.GetInfo(ctx)
	rep, err := a.Calibration.RunPass(ctx, in.Pass)
	if err != nil {
		if psy.IsCode(err, psy.CodeConfiguration) {
			return rep, temporal.NewNonRetryableApplicationError(err.Error(), string(psy.CodeConfiguration), err)
		}
		return rep, err
	}
	if a.Log != nil {
		a.Log.Info("recalibration activity finished",
			"pass", in.Pass,
			"workflow_id", info.WorkflowExecution.ID,
			"attempt", info.Attempt,
			"calibrated", rep.Calibrated,
		)
	}
	return rep, nil
}
