package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskloop/core/internal/domain/entities"
)

func makeTask(name string, start, due time.Time) *entities.Task {
	return &entities.Task{
		ID:      uuid.New(),
		Name:    name,
		StartAt: start,
		DueAt:   due,
	}
}

func makeBlock(name string, start, due time.Time) *entities.Task {
	t := makeTask(name, start, due)
	t.SetDetails(entities.TaskDetails{IsTimeBlock: true})
	return t
}

func TestNextFreeSlotNoConflict(t *testing.T) {
	at := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	got := NextFreeSlot(at, 25*time.Minute, nil)
	if !got.Equal(at) {
		t.Errorf("expected unchanged slot %v, got %v", at, got)
	}
}

func TestNextFreeSlotDeflectsPastBlock(t *testing.T) {
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	block := makeBlock("meeting", day.Add(9*time.Hour), day.Add(10*time.Hour))

	got := NextFreeSlot(day.Add(9*time.Hour+30*time.Minute), 25*time.Minute, []*entities.Task{block})

	want := day.Add(10*time.Hour + BlockClearance)
	if !got.Equal(want) {
		t.Errorf("expected slot %v after block, got %v", want, got)
	}
}

func TestNextFreeSlotChainsThroughAdjacentBlocks(t *testing.T) {
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	blocks := []*entities.Task{
		makeBlock("first", day.Add(9*time.Hour), day.Add(10*time.Hour)),
		makeBlock("second", day.Add(10*time.Hour), day.Add(11*time.Hour)),
	}

	got := NextFreeSlot(day.Add(9*time.Hour), time.Hour, blocks)

	// Deflecting past the first block lands inside the second; the loop
	// must keep going.
	want := day.Add(11*time.Hour + BlockClearance)
	if !got.Equal(want) {
		t.Errorf("expected slot %v, got %v", want, got)
	}
}

func TestChainTasksProducesNonOverlappingTimeline(t *testing.T) {
	day := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	blocks := []*entities.Task{
		makeBlock("lunch", day.Add(12*time.Hour), day.Add(13*time.Hour)),
	}
	tasks := []*entities.Task{
		makeTask("a", day.Add(11*time.Hour), day.Add(11*time.Hour+30*time.Minute)),
		makeTask("b", day.Add(11*time.Hour), day.Add(12*time.Hour)),
		makeTask("c", day.Add(11*time.Hour), day.Add(11*time.Hour+45*time.Minute)),
	}

	ChainTasks(tasks, day.Add(11*time.Hour), blocks)

	all := append(append([]*entities.Task{}, tasks...), blocks...)
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j].StartAt, all[j].DueAt) {
				t.Errorf("%s [%v..%v] overlaps %s [%v..%v]",
					all[i].Name, all[i].StartAt, all[i].DueAt,
					all[j].Name, all[j].StartAt, all[j].DueAt)
			}
		}
	}

	// Durations survive the rechain.
	if tasks[0].DueAt.Sub(tasks[0].StartAt) != 30*time.Minute {
		t.Errorf("task a duration changed: %v", tasks[0].DueAt.Sub(tasks[0].StartAt))
	}
}

func TestShuffleTasksIsAPermutation(t *testing.T) {
	day := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	tasks := make([]*entities.Task, 10)
	ids := make(map[uuid.UUID]bool, 10)
	for i := range tasks {
		tasks[i] = makeTask("t", day, day.Add(25*time.Minute))
		ids[tasks[i].ID] = true
	}

	ShuffleTasks(tasks, rand.New(rand.NewSource(1)))

	if len(tasks) != 10 {
		t.Fatalf("shuffle changed length: %d", len(tasks))
	}
	for _, task := range tasks {
		if !ids[task.ID] {
			t.Error("shuffle introduced an unknown task")
		}
		delete(ids, task.ID)
	}
	if len(ids) != 0 {
		t.Error("shuffle dropped tasks")
	}
}

func TestPartition(t *testing.T) {
	day := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	block := makeBlock("block", day, day.Add(time.Hour))
	active := makeTask("active", day, day.Add(time.Hour))
	active.Progress = entities.ProgressInProgress
	pending := makeTask("pending", day, day.Add(time.Hour))
	pending.Progress = entities.ProgressNotStarted

	blocks, inProgress, movable := Partition([]*entities.Task{block, active, pending})

	if len(blocks) != 1 || blocks[0] != block {
		t.Errorf("blocks = %v", blocks)
	}
	if len(inProgress) != 1 || inProgress[0] != active {
		t.Errorf("inProgress = %v", inProgress)
	}
	if len(movable) != 1 || movable[0] != pending {
		t.Errorf("movable = %v", movable)
	}
}
