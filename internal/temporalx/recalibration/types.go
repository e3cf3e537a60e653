package recalibration

const (
	WorkflowName    = "item_recalibration"
	ActivityRunPass = "item_recalibration_run_pass"

	DailyScheduleID  = "item-recalibration-daily"
	WeeklyScheduleID = "item-recalibration-weekly"
)

type Input struct {
	Pass string `json:"pass"`
}
