package symtab

// containment is the ordered name index of one scope.
//
// Ordinary bindings are last-write-wins. Tag declarations (class, struct,
// union, enum) are additionally remembered in tags so a later ordinary
// declaration of the same name hides them from ordinary lookup only.
type containment struct {
	order  []string
	byName map[string]*Declaration
	tags   map[string]*Declaration
}

func newContainment() *containment {
	return &containment{
		byName: make(map[string]*Declaration),
		tags:   make(map[string]*Declaration),
	}
}

// binding is the state of one name before a bind, used to undo it.
type binding struct {
	name     string
	existed  bool
	previous *Declaration
	tag      *Declaration
	hadTag   bool
}

func (c *containment) bind(d *Declaration) binding {
	prev, existed := c.byName[d.Name]
	tag, hadTag := c.tags[d.Name]
	b := binding{name: d.Name, existed: existed, previous: prev, tag: tag, hadTag: hadTag}

	if !existed {
		c.order = append(c.order, d.Name)
	}
	c.byName[d.Name] = d
	if d.Kind.IsTag() {
		c.tags[d.Name] = d
	}
	return b
}

func (c *containment) restore(b binding) {
	if b.existed {
		c.byName[b.name] = b.previous
	} else {
		delete(c.byName, b.name)
		for i, name := range c.order {
			if name == b.name {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	if b.hadTag {
		c.tags[b.name] = b.tag
	} else {
		delete(c.tags, b.name)
	}
}

// find returns the binding of name accepted by match, preferring the
// ordinary binding over the tag binding.
func (c *containment) find(name string, match func(*Declaration) bool) *Declaration {
	if c == nil {
		return nil
	}
	if d, ok := c.byName[name]; ok && match(d) {
		return d
	}
	if d, ok := c.tags[name]; ok && match(d) {
		return d
	}
	return nil
}

func (c *containment) len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

func (c *containment) all() []*Declaration {
	if c == nil {
		return nil
	}
	out := make([]*Declaration, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}
