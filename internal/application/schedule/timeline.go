package schedule

import (
	"math/rand"
	"sort"
	"time"

	"github.com/taskloop/core/internal/domain/entities"
)

// Spacing applied by the interactive rescheduling operations. Time blocks
// are immovable; everything else is shifted around them.
const (
	StartChainOffset = 30 * time.Minute // gap between "now" and the first rechained task
	BlockClearance   = 5 * time.Minute  // gap left after a conflicting time block
)

// NextFreeSlot returns the earliest start at or after candidate such that
// [start, start+dur) clears every block's [start, due) interval. On each
// conflict the candidate advances to the block's end plus the clearance
// gap, looped until no conflict remains.
func NextFreeSlot(candidate time.Time, dur time.Duration, blocks []*entities.Task) time.Time {
	for {
		conflict := false
		for _, b := range blocks {
			if candidate.Before(b.DueAt) && candidate.Add(dur).After(b.StartAt) {
				candidate = b.DueAt.Add(BlockClearance)
				conflict = true
			}
		}
		if !conflict {
			return candidate
		}
	}
}

// ChainTasks lays tasks out back-to-back from start in slice order,
// preserving each task's duration and deflecting around blocks. The input
// tasks are mutated in place.
func ChainTasks(tasks []*entities.Task, start time.Time, blocks []*entities.Task) {
	cursor := start
	for _, t := range tasks {
		dur := t.Duration()
		s := NextFreeSlot(cursor, dur, blocks)
		t.StartAt = s
		t.DueAt = s.Add(dur)
		cursor = t.DueAt
	}
}

// SortByStart orders tasks by ascending start time.
func SortByStart(tasks []*entities.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartAt.Before(tasks[j].StartAt)
	})
}

// ShuffleTasks Fisher-Yates shuffles the slice in place using the given
// source.
func ShuffleTasks(tasks []*entities.Task, rng *rand.Rand) {
	for i := len(tasks) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		tasks[i], tasks[j] = tasks[j], tasks[i]
	}
}

// Partition splits tasks into time blocks, in-progress tasks, and the
// movable remainder, in input order.
func Partition(tasks []*entities.Task) (blocks, inProgress, movable []*entities.Task) {
	for _, t := range tasks {
		switch {
		case t.IsTimeBlock():
			blocks = append(blocks, t)
		case t.Progress == entities.ProgressInProgress:
			inProgress = append(inProgress, t)
		default:
			movable = append(movable, t)
		}
	}
	return blocks, inProgress, movable
}
