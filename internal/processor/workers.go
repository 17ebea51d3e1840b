// workers.go
package processor

// TaskType defines types of tasks that can be queued.
type TaskType int

const (
	TaskTypeAction TaskType = iota
)

// Task represents a unit of work for the worker pool.
type Task struct {
	Type   TaskType
	Item   PendingDetection
	Action Action
}

// startWorkerPool starts n goroutines draining the worker queue.
func (p *Processor) startWorkerPool(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case task := <-p.workerQueue:
					p.handleTask(&task)
				}
			}
		}()
	}
}

// handleTask executes a single queued task.
func (p *Processor) handleTask(task *Task) {
	if task.Type != TaskTypeAction || task.Action == nil {
		return
	}
	if err := task.Action.Execute(&task.Item); err != nil && p.logger != nil {
		p.logger.Error("Action failed",
			"description", task.Action.GetDescription(),
			"error", err,
		)
	}
}
