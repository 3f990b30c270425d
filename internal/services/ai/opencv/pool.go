package opencv

import "fmt"

// pool hands out OpenCV objects one caller at a time. Nets and classifiers
// keep per-call state internally, so each goroutine borrows its own copy.
type pool[T any] struct {
	items chan T
	all   []T
}

// newPool builds size items. When one fails, the items already built are
// released before the error is returned.
func newPool[T any](size int, create func() (T, error), release func(T) error) (*pool[T], error) {
	if size < 1 {
		size = 1
	}
	p := &pool[T]{items: make(chan T, size)}
	for i := 0; i < size; i++ {
		item, err := create()
		if err != nil {
			p.close(release)
			return nil, fmt.Errorf("pool item %d: %w", i, err)
		}
		p.all = append(p.all, item)
		p.items <- item
	}
	return p, nil
}

func (p *pool[T]) get() T {
	return <-p.items
}

func (p *pool[T]) put(item T) {
	p.items <- item
}

func (p *pool[T]) size() int {
	return len(p.all)
}

func (p *pool[T]) close(release func(T) error) error {
	var first error
	for _, item := range p.all {
		if err := release(item); err != nil && first == nil {
			first = err
		}
	}
	return first
}
