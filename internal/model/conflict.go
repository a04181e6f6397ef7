package model

import "time"

type ConflictStrategy string

const (
	StrategyAsk        ConflictStrategy = "ASK"
	StrategyNewerWins  ConflictStrategy = "NEWER_WINS"
	StrategyLocalWins  ConflictStrategy = "LOCAL_WINS"
	StrategyServerWins ConflictStrategy = "SERVER_WINS"
	StrategySkip       ConflictStrategy = "SKIP"
)

func (s ConflictStrategy) Valid() bool {
	switch s {
	case StrategyAsk, StrategyNewerWins, StrategyLocalWins, StrategyServerWins, StrategySkip:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomeAutoHealed Outcome = "AUTO_HEALED"
	OutcomeKeptLocal  Outcome = "KEPT_LOCAL"
	OutcomeKeptServer Outcome = "KEPT_SERVER"
	OutcomeKeptBoth   Outcome = "KEPT_BOTH"
	OutcomeMerged     Outcome = "MERGED"
	OutcomeAborted    Outcome = "ABORTED"
)

// Choice is what the operator picked for a conflict. It carries no display text.
type Choice int

const (
	ChoiceKeepLocal Choice = iota
	ChoiceKeepServer
	ChoiceKeepBoth
	ChoiceMerge
	ChoiceQuit
)

func (c Choice) String() string {
	switch c {
	case ChoiceKeepLocal:
		return "keep-local"
	case ChoiceKeepServer:
		return "keep-server"
	case ChoiceKeepBoth:
		return "keep-both"
	case ChoiceMerge:
		return "merge"
	case ChoiceQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// ConflictFile is a file believed to be a conflict variant of another file.
type ConflictFile struct {
	Path    string
	Rel     string
	ModTime time.Time
	Ext     string
	Source  ConflictSource
}

// OriginalFile is the canonical counterpart of a ConflictFile. It may not exist.
type OriginalFile struct {
	Path string
	Rel  string
}

type Resolution struct {
	Source          string
	Conflict        string
	Original        string
	Outcome         Outcome
	TrashPath       string
	ConflictModTime time.Time
	OriginalModTime *time.Time
	Err             error
}

type RunStatus string

const (
	RunCompleted         RunStatus = "COMPLETED"
	RunAbortedByOperator RunStatus = "ABORTED_BY_OPERATOR"
)

type RunResult struct {
	ID          string
	Status      RunStatus
	Resolutions []Resolution
	Failed      int
}

// Count returns how many resolutions ended with the given outcome.
func (r RunResult) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Resolutions {
		if res.Err == nil && res.Outcome == outcome {
			n++
		}
	}
	return n
}
