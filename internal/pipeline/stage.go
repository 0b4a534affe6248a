package pipeline

// Stage is one step of a run, in the order they execute.
type Stage string

const (
	StageFetching        Stage = "fetching"
	StageDescribing      Stage = "describing"
	StageRefining        Stage = "refining"
	StageConvertingUnits Stage = "converting_units"
	StageFetchingAudio   Stage = "fetching_audio"
	StageAnalyzingAudio  Stage = "analyzing_audio"
	StageMerging         Stage = "merging"
	StageAssembling      Stage = "assembling"
)

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeSoftFailure Outcome = "soft_failure"
	OutcomeHardFailure Outcome = "hard_failure"
	OutcomeSkipped     Outcome = "skipped"
)

// StageResult records how one stage ended. Err is set for failures.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Err     error
}

// Status is the outcome of a whole run.
type Status string

const (
	// StatusDone means the recipe was delivered.
	StatusDone Status = "done"
	// StatusFailed means a required stage failed and the user was told which.
	StatusFailed Status = "failed"
	// StatusUnexpected means delivery failed or the run panicked.
	StatusUnexpected Status = "unexpected"
)

// Report summarizes a finished run.
type Report struct {
	Status Status
	// Text is the final recipe text, empty unless the run got past refinement.
	Text   string
	Stages []StageResult
	Err    error
}

// Outcome returns the outcome recorded for stage and whether the stage ran.
func (r Report) Outcome(stage Stage) (Outcome, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Outcome, true
		}
	}
	return "", false
}
