package scene

// Group is an ordered in-memory Container.
type Group struct {
	children []Primitive
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add implements Container.
func (g *Group) Add(p Primitive) {
	g.children = append(g.children, p)
}

// Remove implements Container. Removing the last child is O(1).
func (g *Group) Remove(p Primitive) {
	for i := len(g.children) - 1; i >= 0; i-- {
		if g.children[i] == p {
			copy(g.children[i:], g.children[i+1:])
			g.children[len(g.children)-1] = nil
			g.children = g.children[:len(g.children)-1]
			return
		}
	}
}

// Children implements Container.
func (g *Group) Children() []Primitive {
	out := make([]Primitive, len(g.children))
	copy(out, g.children)
	return out
}

// Len returns the number of attached children.
func (g *Group) Len() int {
	return len(g.children)
}

// Each calls fn for every child without copying the child list.
func (g *Group) Each(fn func(p Primitive)) {
	for _, p := range g.children {
		fn(p)
	}
}
