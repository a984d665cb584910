package grouped

type group struct{}

func (g *group) Go(fn func() error) {}

func scan() {
	var g group
	g.Go(func() error { return nil })
}
