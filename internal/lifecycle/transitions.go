// Package lifecycle owns the status state machine of a link record and the
// operator actions that move records through it.
package lifecycle

import "github.com/Bahjat/linkboard/internal/model"

// allowed lists, for each status, the statuses it may move to.
var allowed = map[model.Status][]model.Status{
	model.StatusCreated: {model.StatusPending, model.StatusStop},
	model.StatusPending: {model.StatusChecked, model.StatusError},
	model.StatusChecked: {model.StatusCreated, model.StatusStop},
	model.StatusError:   {model.StatusCreated, model.StatusStop},
	model.StatusStop:    {model.StatusCreated},
}

// CanTransition reports whether a record in from may move to to.
func CanTransition(from, to model.Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Action names.
const (
	ActionAnalyze = "analyze"
	ActionStop    = "stop"
)

// Action is the single per-row operation offered for a record.
type Action struct {
	Name     string       `json:"name"`
	Target   model.Status `json:"target"`
	Disabled bool         `json:"disabled"`
}

// ActionFor returns the action offered for a record in status s. Finished or
// halted records can be analyzed again; everything else can be stopped,
// except a record that is being analyzed right now.
func ActionFor(s model.Status) Action {
	switch s {
	case model.StatusStop, model.StatusChecked, model.StatusError:
		return Action{Name: ActionAnalyze, Target: model.StatusCreated}
	}
	return Action{Name: ActionStop, Target: model.StatusStop, Disabled: s == model.StatusPending}
}
