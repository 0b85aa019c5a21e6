package strata

import "sync"

// task calls fn on every element of data, split in contiguous chunks over workersCount
// goroutines. fn must only write state owned by its element.
func task[T any](workersCount int, data []T, fn func(data T)) {
	dataSize := len(data)
	if workersCount <= 1 || dataSize <= 1 {
		for i := range data {
			fn(data[i])
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		start, end := workerID*chunkSize, min((workerID+1)*chunkSize, dataSize)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, end)
	}
	wg.Wait()
}
