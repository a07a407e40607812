package run

import (
	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/task"
)

// CommandsFromTasks converts a refined, flattened task list into the
// execution command list. Only Execute tasks become commands — their
// action is the literal shell-command string. Informational variants
// are presentation-only and carry nothing to run.
func CommandsFromTasks(tasks []task.Task) []executor.ExecutionCommand {
	var out []executor.ExecutionCommand
	for _, t := range task.Flatten(tasks) {
		if t.Type != task.Execute {
			continue
		}
		out = append(out, executor.ExecutionCommand{
			Description: t.Action,
			Command:     t.Action,
		})
	}
	return out
}
