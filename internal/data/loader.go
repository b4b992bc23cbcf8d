package data

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// LoaderOptions configures batch assembly.
type LoaderOptions struct {
	BatchSize  int
	NumWorkers int
	Seed       int64
	// DropLast discards a trailing batch smaller than BatchSize.
	DropLast bool
}

// Loader turns a Dataset into an ordered stream of batches per epoch.
// Assembly is parallelized across workers but delivery order is fixed:
// batch k of epoch e is identical no matter how many workers ran, so
// runs are reproducible for a given seed. The shuffle is keyed by
// seed+epoch, which lets chained sessions resume the global data order
// by continuing the epoch numbering.
type Loader struct {
	ds   Dataset
	opts LoaderOptions
}

// NewLoader validates opts and wraps ds.
func NewLoader(ds Dataset, opts LoaderOptions) (*Loader, error) {
	if ds == nil {
		return nil, errors.New("data: loader needs a dataset")
	}
	if ds.Len() == 0 {
		return nil, errors.New("data: dataset is empty")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("data: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	return &Loader{ds: ds, opts: opts}, nil
}

// BatchesPerEpoch returns the number of batches one epoch yields.
func (l *Loader) BatchesPerEpoch() int {
	n := l.ds.Len() / l.opts.BatchSize
	if !l.opts.DropLast && l.ds.Len()%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Dataset returns the wrapped dataset.
func (l *Loader) Dataset() Dataset { return l.ds }

type batchJob struct {
	id      int
	indices []int
}

type builtBatch struct {
	id    int
	batch Batch
	err   error
}

// Batches starts assembly for one epoch and returns the batch stream
// plus an error channel. The batch channel is closed when the epoch is
// exhausted; on failure one error is delivered and both channels close.
func (l *Loader) Batches(ctx context.Context, epoch int) (<-chan Batch, <-chan error) {
	out := make(chan Batch, l.opts.NumWorkers)
	errCh := make(chan error, 1)

	perm := rand.New(rand.NewSource(l.opts.Seed + int64(epoch)*1_000_003)).Perm(l.ds.Len())
	jobs := make(chan batchJob, l.opts.NumWorkers)
	built := make(chan builtBatch, l.opts.NumWorkers)

	go func() {
		defer close(jobs)
		id := 0
		for start := 0; start < len(perm); start += l.opts.BatchSize {
			end := start + l.opts.BatchSize
			if end > len(perm) {
				if l.opts.DropLast {
					break
				}
				end = len(perm)
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- batchJob{id: id, indices: perm[start:end]}:
				id++
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < l.opts.NumWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				b, err := l.assemble(job)
				select {
				case <-ctx.Done():
					return
				case built <- builtBatch{id: job.id, batch: b, err: err}:
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(built)
	}()

	go func() {
		defer close(out)
		defer close(errCh)
		reorder(ctx, built, out, errCh)
	}()

	return out, errCh
}

func (l *Loader) assemble(job batchJob) (Batch, error) {
	h, w := l.ds.Shape()
	b := Batch{
		Inputs: make([][]float64, 0, len(job.indices)),
		Labels: make([]int, 0, len(job.indices)),
		Height: h,
		Width:  w,
		Index:  job.id,
	}
	for _, idx := range job.indices {
		input, label, err := l.ds.Sample(idx)
		if err != nil {
			return Batch{}, fmt.Errorf("sample %d: %w", idx, err)
		}
		b.Inputs = append(b.Inputs, input)
		b.Labels = append(b.Labels, label)
	}
	return b, nil
}

// reorder delivers built batches in job-id order regardless of which
// worker finished first.
func reorder(ctx context.Context, built <-chan builtBatch, out chan<- Batch, errCh chan<- error) {
	pending := make(map[int]builtBatch)
	next := 0
	flush := func() bool {
		for {
			bb, ok := pending[next]
			if !ok {
				return true
			}
			delete(pending, next)
			if bb.err != nil {
				errCh <- bb.err
				return false
			}
			select {
			case <-ctx.Done():
				return false
			case out <- bb.batch:
				next++
			}
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case bb, ok := <-built:
			if !ok {
				flush()
				return
			}
			pending[bb.id] = bb
			if !flush() {
				return
			}
		}
	}
}
