// Package contract persists agent reassignments on stored contracts.
package contract

import (
	"accai/internal/fpchange/models"
)

// plannedChange pairs a mutated contract with the change that produced it.
type plannedChange struct {
	contract models.Contract
	change   models.ChangeRequest
}

// planAgentChanges returns the contracts whose agent changes, already mutated.
//
// A contract takes the first change that targets its number and whose
// previous agent equals the stored agent. Contracts without such a change
// are left out silently.
func planAgentChanges(contracts []models.Contract, changes []models.ChangeRequest) []plannedChange {
	byContract := make(map[string][]models.ChangeRequest, len(changes))
	for _, c := range changes {
		byContract[c.ContractNumber] = append(byContract[c.ContractNumber], c)
	}

	var planned []plannedChange
	for _, ct := range contracts {
		for _, change := range byContract[ct.ContractNumber] {
			if change.PreviousAgentID != ct.CurrentAgentID {
				continue
			}
			ct.CurrentAgentID = change.NewAgentID
			planned = append(planned, plannedChange{contract: ct, change: change})
			break
		}
	}
	return planned
}

func appliedChanges(planned []plannedChange) []models.ChangeRequest {
	out := make([]models.ChangeRequest, len(planned))
	for i, p := range planned {
		out[i] = p.change
	}
	return out
}

// contractNumbers returns the distinct contract numbers referenced by changes.
func contractNumbers(changes []models.ChangeRequest) []string {
	seen := make(map[string]struct{}, len(changes))
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.ContractNumber]; ok {
			continue
		}
		seen[c.ContractNumber] = struct{}{}
		out = append(out, c.ContractNumber)
	}
	return out
}
