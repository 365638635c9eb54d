package visstream

import "sync"

type (
	// WorkerCollection defines worker collection operations.
	WorkerCollection interface {
		// Append a worker to the WorkerCollection.
		Append(...Worker)
		// Delete a worker from the WorkerCollection.
		Delete(...Worker)
		// Length returns the length of the WorkerCollection.
		Length() int
		// FindByLabel returns the workers reading the labelled source.
		FindByLabel(string) []Worker
		// Iterator iterates over the workers in a WorkerCollection.
		Iterator() <-chan Worker
	}

	// workerCollection contains the live workers of a session.
	workerCollection struct {
		mux     sync.Mutex
		workers map[Worker]struct{}
	}
)

// newWorkerCollection creates a WorkerCollection.
func newWorkerCollection() WorkerCollection {
	return &workerCollection{
		workers: make(map[Worker]struct{}),
	}
}

func (wc *workerCollection) Append(workers ...Worker) {
	wc.mux.Lock()
	for _, worker := range workers {
		wc.workers[worker] = struct{}{}
	}
	wc.mux.Unlock()
}

func (wc *workerCollection) Delete(workers ...Worker) {
	wc.mux.Lock()
	for _, worker := range workers {
		delete(wc.workers, worker)
	}
	wc.mux.Unlock()
}

func (wc *workerCollection) Length() int {
	wc.mux.Lock()
	length := len(wc.workers)
	wc.mux.Unlock()

	return length
}

func (wc *workerCollection) FindByLabel(label string) []Worker {
	wc.mux.Lock()
	defer wc.mux.Unlock()

	found := make([]Worker, 0)
	for worker := range wc.workers {
		if worker.Label() == label {
			found = append(found, worker)
		}
	}

	return found
}

func (wc *workerCollection) Iterator() <-chan Worker {
	wc.mux.Lock()
	c := make(chan Worker, len(wc.workers))
	for worker := range wc.workers {
		c <- worker
	}
	wc.mux.Unlock()

	close(c)

	return c
}
