package sample

import (
	"runtime"
	"sync"
)

// Each calls fn for 0..n-1 with at most concurrency calls in flight
// (4*NumCPU when concurrency ≤ 0). It waits for every call and returns the
// first error, by index.
func Each(n, concurrency int, fn func(i int) error) error {
	if concurrency <= 0 {
		concurrency = 4 * runtime.NumCPU()
	}

	errs := make([]error, n)

	var wg sync.WaitGroup
	sem := make(chan bool, concurrency)
	for i := 0; i < n; i++ {
		sem <- true
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			errs[i] = fn(i)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
