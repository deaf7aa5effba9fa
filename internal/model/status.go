package model

// Deployment run status constants.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Pipeline step names, in execution order.
const (
	StepBuild     = "build"
	StepRegister  = "register"
	StepProvision = "provision"
	StepReconcile = "reconcile"
	StepWait      = "wait"
	StepRoute     = "route"
	StepReclaim   = "reclaim"
)

// Steps lists the pipeline steps in the order they run.
var Steps = []string{
	StepBuild,
	StepRegister,
	StepProvision,
	StepReconcile,
	StepWait,
	StepRoute,
	StepReclaim,
}
