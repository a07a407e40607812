package task

// Flatten produces the linear execution list for a plan: each Group is
// replaced in place by its subtasks, recursively, and Ignore/Discard
// nodes are dropped entirely. The input is not modified.
func Flatten(tasks []Task) []Task {
	var out []Task
	for _, t := range tasks {
		switch t.Type {
		case Group:
			out = append(out, Flatten(t.Subtasks)...)
		case Ignore, Discard:
			// dropped
		default:
			out = append(out, t)
		}
	}
	return out
}

// DefineIndexes returns the positions of Define tasks in document
// order. The refinement engine's group cursor indexes into this list,
// not into the raw task slice.
func DefineIndexes(tasks []Task) []int {
	var idx []int
	for i, t := range tasks {
		if t.Type == Define {
			idx = append(idx, i)
		}
	}
	return idx
}
