// Package scheduler - кооперативный планировщик возобновляемых задач.
//
// Задача приостанавливается только в одной точке: шаг возвращает задержку,
// и задача продолжится на первом проходе RunDue не раньше дедлайна.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/Mistaken-Studio/customstructures-mirror-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// TaskID - идентификатор задачи в пределах планировщика.
type TaskID uint64

// Step - один шаг задачи. wait - пауза до следующего шага, done - задача завершена.
type Step func(now time.Time) (wait time.Duration, done bool)

// Scheduler управляет очередью задач по дедлайнам.
// Не потокобезопасен: используется только из горутины тика.
type Scheduler struct {
	name    string
	queue   taskQueue
	itemMap map[TaskID]*Task
	nextID  TaskID
	seq     uint64
	running bool
}

func New(name string) *Scheduler {
	return &Scheduler{
		name:    name,
		queue:   make(taskQueue, 0),
		itemMap: make(map[TaskID]*Task),
	}
}

// Schedule ставит задачу, первый шаг которой выполнится не раньше at.
func (s *Scheduler) Schedule(name string, at time.Time, step Step) TaskID {
	s.nextID++
	s.seq++
	item := &Task{
		ID:       s.nextID,
		Name:     name,
		Deadline: at,
		seq:      s.seq,
		step:     step,
	}
	heap.Push(&s.queue, item)
	s.itemMap[item.ID] = item

	logger.Log.WithFields(logrus.Fields{
		"scheduler": s.name,
		"task":      name,
		"id":        item.ID,
	}).Trace("Task scheduled")
	return item.ID
}

// After - Schedule с относительной задержкой.
func (s *Scheduler) After(name string, now time.Time, delay time.Duration, step Step) TaskID {
	return s.Schedule(name, now.Add(delay), step)
}

// Cancel снимает задачу. Задача, уже выбранная текущим проходом, но еще не запущенная, тоже не выполнится.
func (s *Scheduler) Cancel(id TaskID) bool {
	item, ok := s.itemMap[id]
	if !ok {
		return false
	}
	if item.Index >= 0 {
		heap.Remove(&s.queue, item.Index)
	}
	delete(s.itemMap, id)
	return true
}

// Reschedule переносит дедлайн задачи.
func (s *Scheduler) Reschedule(id TaskID, at time.Time) bool {
	item, ok := s.itemMap[id]
	if !ok || item.Index < 0 {
		return false
	}
	s.queue.update(item, at)
	return true
}

// Has - задача еще ожидает выполнения.
func (s *Scheduler) Has(id TaskID) bool {
	_, ok := s.itemMap[id]
	return ok
}

func (s *Scheduler) Len() int {
	return len(s.itemMap)
}

// Next - ближайший дедлайн.
func (s *Scheduler) Next() (time.Time, bool) {
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].Deadline, true
}

// RunDue выполняет по одному шагу каждой задачи с дедлайном <= now.
// Задача, запросившая нулевую паузу, продолжится только на следующем проходе.
func (s *Scheduler) RunDue(now time.Time) int {
	if s.running {
		return 0
	}
	s.running = true
	defer func() { s.running = false }()

	var batch []*Task
	for s.queue.Len() > 0 && !s.queue[0].Deadline.After(now) {
		batch = append(batch, heap.Pop(&s.queue).(*Task))
	}

	ran := 0
	for _, item := range batch {
		// Задачу могли отменить шаги, выполненные раньше в этом же проходе
		if cur, ok := s.itemMap[item.ID]; !ok || cur != item {
			continue
		}
		wait, done := item.step(now)
		ran++

		if _, still := s.itemMap[item.ID]; !still {
			continue // отменила сама себя
		}
		if done {
			delete(s.itemMap, item.ID)
			continue
		}
		if wait < 0 {
			wait = 0
		}
		s.seq++
		item.seq = s.seq
		item.Deadline = now.Add(wait)
		heap.Push(&s.queue, item)
	}
	return ran
}

// DebugDump возвращает снимок очереди для отладки
func (s *Scheduler) DebugDump() []map[string]interface{} {
	// Инициализируем как пустой слайс, а не nil. Тогда в JSON это будет "[]", а не "null"
	result := make([]map[string]interface{}, 0)

	for _, item := range s.queue {
		result = append(result, map[string]interface{}{
			"id":       item.ID,
			"name":     item.Name,
			"deadline": item.Deadline.Format(time.RFC3339Nano),
			"index":    item.Index,
		})
	}
	return result
}
