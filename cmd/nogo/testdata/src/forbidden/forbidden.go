package forbidden

func scanAsync(done chan<- struct{}) {
	go func() { // want "raw 'go' statement forbidden - use errgroup.Group.Go"
		done <- struct{}{}
	}()
}

func walkAsync() {
	go walk() // want "raw 'go' statement forbidden - use errgroup.Group.Go"
}

func walk() {}

type indexer struct{}

func (i *indexer) run() {}

func indexAsync() {
	i := &indexer{}
	go i.run() // want "raw 'go' statement forbidden - use errgroup.Group.Go"
}
