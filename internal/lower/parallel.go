package lower

import (
	"sync"

	"github.com/sasha-s/go-deadlock"

	"blocklang/internal/ast"
)

// lowerFunctionsParallel lowers every function concurrently. Each
// function's FuncLowerer is entirely self-contained (its own scope table,
// spill ledger, and local block array), so the only genuinely shared
// mutable state is the result slot and the first-error capture, which
// go-deadlock.Mutex guards; each result is stored at its function's
// source index, so the visible output is unaffected by goroutine
// completion order (spec.md §5).
func lowerFunctionsParallel(pr *program, fns []*ast.Function) ([]*FuncLowerer, error) {
	out := make([]*FuncLowerer, len(fns))
	var wg sync.WaitGroup
	var mu deadlock.Mutex
	var firstErr error

	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn *ast.Function) {
			defer wg.Done()
			fl, err := lowerOneFunction(pr, fn)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[i] = fl
		}(i, fn)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
