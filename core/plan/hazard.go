package plan

import (
	"sort"
)

// =============================================================================
// Hazard Types
// =============================================================================

// HazardType names the kind of ordering conflict between two tasks.
type HazardType string

const (
	// HazardRAW: task_b reads a resource task_a writes.
	HazardRAW HazardType = "RAW"
	// HazardWAR: task_a reads a resource task_b later overwrites.
	HazardWAR HazardType = "WAR"
	// HazardWAW: both tasks write the resource.
	HazardWAW HazardType = "WAW"
	// HazardMutex: both tasks hold the same named lock.
	HazardMutex HazardType = "MUTEX"
)

func (h HazardType) rank() int {
	switch h {
	case HazardRAW:
		return 0
	case HazardWAR:
		return 1
	case HazardWAW:
		return 2
	default:
		return 3
	}
}

// Hazard is a pairwise ordering constraint. TaskA always has to finish before
// TaskB starts.
type Hazard struct {
	Type     HazardType `json:"type" yaml:"type"`
	TaskA    string     `json:"task_a" yaml:"task_a"`
	TaskB    string     `json:"task_b" yaml:"task_b"`
	Resource string     `json:"resource" yaml:"resource"`
}

// =============================================================================
// Detection
// =============================================================================

// DetectHazards derives every hazard between the declared tasks.
//
// For tasks A and B, with A declared first, and a shared resource r:
//   - both write r: WAW A->B, ordered by declaration.
//   - A writes r, B reads r: RAW A->B.
//   - B writes r, A reads r: if A also writes r its position is already fixed
//     before B, so A must read before B overwrites (WAR A->B). Otherwise A
//     consumes B's output (RAW B->A).
//   - both hold lock r: MUTEX A->B, ordered by declaration.
//
// Tasks are bucketed by touched resource first, so only tasks that share a
// name are ever compared.
func DetectHazards(tasks []TaskDefinition) []Hazard {
	position := make(map[string]int, len(tasks))
	for i, t := range tasks {
		position[t.ID] = i
	}

	var hazards []Hazard
	for _, bucket := range bucketByResource(tasks) {
		hazards = append(hazards, resourceHazards(tasks, bucket)...)
	}
	for _, bucket := range bucketByMutex(tasks) {
		hazards = append(hazards, mutexHazards(tasks, bucket)...)
	}

	sortHazards(hazards, position)
	return hazards
}

type bucket struct {
	name  string
	tasks []int
}

func bucketByResource(tasks []TaskDefinition) []bucket {
	return buildBuckets(tasks, func(t TaskDefinition) []string {
		names := make([]string, 0, len(t.Touches.Reads)+len(t.Touches.Writes))
		names = append(names, t.Touches.Reads...)
		return append(names, t.Touches.Writes...)
	})
}

func bucketByMutex(tasks []TaskDefinition) []bucket {
	return buildBuckets(tasks, func(t TaskDefinition) []string { return t.Mutexes })
}

func buildBuckets(tasks []TaskDefinition, names func(TaskDefinition) []string) []bucket {
	index := make(map[string]int)
	var buckets []bucket
	for i, t := range tasks {
		for _, name := range names(t) {
			b, ok := index[name]
			if !ok {
				b = len(buckets)
				index[name] = b
				buckets = append(buckets, bucket{name: name})
			}
			if n := len(buckets[b].tasks); n == 0 || buckets[b].tasks[n-1] != i {
				buckets[b].tasks = append(buckets[b].tasks, i)
			}
		}
	}
	return buckets
}

func resourceHazards(tasks []TaskDefinition, b bucket) []Hazard {
	var hazards []Hazard
	for x := 0; x < len(b.tasks); x++ {
		for y := x + 1; y < len(b.tasks); y++ {
			hazards = append(hazards, pairHazards(tasks[b.tasks[x]], tasks[b.tasks[y]], b.name)...)
		}
	}
	return hazards
}

func pairHazards(a, b TaskDefinition, r string) []Hazard {
	aw, ar := a.writes(r), a.reads(r)
	bw, br := b.writes(r), b.reads(r)

	var hazards []Hazard
	if aw && bw {
		hazards = append(hazards, Hazard{Type: HazardWAW, TaskA: a.ID, TaskB: b.ID, Resource: r})
	}
	if aw && br {
		hazards = append(hazards, Hazard{Type: HazardRAW, TaskA: a.ID, TaskB: b.ID, Resource: r})
	}
	if bw && ar {
		if aw {
			hazards = append(hazards, Hazard{Type: HazardWAR, TaskA: a.ID, TaskB: b.ID, Resource: r})
		} else {
			hazards = append(hazards, Hazard{Type: HazardRAW, TaskA: b.ID, TaskB: a.ID, Resource: r})
		}
	}
	return hazards
}

func mutexHazards(tasks []TaskDefinition, b bucket) []Hazard {
	var hazards []Hazard
	for x := 0; x < len(b.tasks); x++ {
		for y := x + 1; y < len(b.tasks); y++ {
			hazards = append(hazards, Hazard{
				Type:     HazardMutex,
				TaskA:    tasks[b.tasks[x]].ID,
				TaskB:    tasks[b.tasks[y]].ID,
				Resource: b.name,
			})
		}
	}
	return hazards
}

func sortHazards(hazards []Hazard, position map[string]int) {
	sort.SliceStable(hazards, func(i, j int) bool {
		a, b := hazards[i], hazards[j]
		aLo, aHi := orderedPair(position[a.TaskA], position[a.TaskB])
		bLo, bHi := orderedPair(position[b.TaskA], position[b.TaskB])
		if aLo != bLo {
			return aLo < bLo
		}
		if aHi != bHi {
			return aHi < bHi
		}
		if a.Type.rank() != b.Type.rank() {
			return a.Type.rank() < b.Type.rank()
		}
		return a.Resource < b.Resource
	})
}

func orderedPair(x, y int) (int, int) {
	if x < y {
		return x, y
	}
	return y, x
}

// HazardsBetween returns the hazards involving both tasks, in either role.
func HazardsBetween(hazards []Hazard, a, b string) []Hazard {
	var result []Hazard
	for _, h := range hazards {
		if (h.TaskA == a && h.TaskB == b) || (h.TaskA == b && h.TaskB == a) {
			result = append(result, h)
		}
	}
	return result
}
