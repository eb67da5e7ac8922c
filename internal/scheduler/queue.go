package scheduler

import (
	"container/heap"
	"time"
)

// Task обертка для элемента очереди по дедлайнам
type Task struct {
	ID       TaskID
	Name     string
	Deadline time.Time // Чем раньше, тем раньше задача продолжится
	Index    int       // Индекс в куче (нужен для update)

	seq  uint64 // порядок постановки, разрешает равные дедлайны
	step Step
}

// taskQueue реализует heap.Interface и хранит задачи
type taskQueue []*Task

func (pq taskQueue) Len() int { return len(pq) }

func (pq taskQueue) Less(i, j int) bool {
	// MinHeap по дедлайну, при равенстве - FIFO
	if pq[i].Deadline.Equal(pq[j].Deadline) {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].Deadline.Before(pq[j].Deadline)
}

func (pq taskQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *taskQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*Task)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *taskQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.Index = -1 // для безопасности
	*pq = old[0 : n-1]
	return item
}

// update меняет дедлайн и восстанавливает кучу
func (pq *taskQueue) update(item *Task, deadline time.Time) {
	item.Deadline = deadline
	heap.Fix(pq, item.Index)
}
