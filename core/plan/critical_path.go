package plan

// CriticalPath is the longest chain of RAW data dependencies.
type CriticalPath struct {
	TaskIDs []string `json:"task_ids" yaml:"task_ids"`
	Length  int      `json:"length" yaml:"length"`
}

// ComputeCriticalPath finds the longest RAW chain by task count. WAR, WAW and
// MUTEX hazards order tasks for safety but carry no data, so they are left out.
func ComputeCriticalPath(tasks []TaskDefinition, hazards []Hazard) (CriticalPath, error) {
	g, err := constraintGraph(tasks, hazards, func(t HazardType) bool { return t == HazardRAW })
	if err != nil {
		return CriticalPath{}, err
	}

	path, err := g.LongestPath()
	if err != nil {
		return CriticalPath{}, asCycleError(err, hazards)
	}
	return CriticalPath{TaskIDs: path, Length: len(path)}, nil
}
