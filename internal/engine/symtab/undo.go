package symtab

// Mark is a point in the table's history that Rollback can return to.
type Mark struct {
	live bool
}

type command interface {
	undo()
}

func (*Mark) undo() {}

type addDeclarationCommand struct {
	scope      *Declaration
	decl       *Declaration
	binding    binding
	containing *Declaration
	typeDecl   *Declaration
}

func (c *addDeclarationCommand) undo() {
	c.scope.contained.restore(c.binding)
	c.decl.containing = c.containing
	c.decl.TypeDecl = c.typeDecl
}

type addParentCommand struct {
	derived *Declaration
	index   int
}

func (c *addParentCommand) undo() {
	parents := c.derived.parents
	if c.index < len(parents) {
		c.derived.parents = append(parents[:c.index:c.index], parents[c.index+1:]...)
	}
}

// undoLog journals mutations while at least one mark is outstanding.
type undoLog struct {
	entries []command
	marks   int
}

func (l *undoLog) record(c command) {
	if l.marks == 0 {
		return
	}
	l.entries = append(l.entries, c)
}

// Mark starts journaling AddDeclaration and AddParent so that they can be
// undone with Rollback. Push and Pop are not journaled.
func (t *Table) Mark() *Mark {
	m := &Mark{live: true}
	t.undo.entries = append(t.undo.entries, m)
	t.undo.marks++
	return m
}

// Rollback undoes every journaled change made after m, newest first, and
// discards m and any mark set after it. It reports false for a mark that
// was already committed or rolled back.
func (t *Table) Rollback(m *Mark) bool {
	l := &t.undo
	if l.indexOf(m) < 0 {
		return false
	}
	for len(l.entries) > 0 {
		last := l.entries[len(l.entries)-1]
		l.entries[len(l.entries)-1] = nil
		l.entries = l.entries[:len(l.entries)-1]
		if mk, ok := last.(*Mark); ok {
			mk.live = false
			l.marks--
			if mk == m {
				break
			}
			continue
		}
		last.undo()
	}
	if l.marks == 0 {
		l.entries = nil
	}
	return true
}

func (l *undoLog) indexOf(m *Mark) int {
	if m == nil || !m.live {
		return -1
	}
	for i, c := range l.entries {
		if c == command(m) {
			return i
		}
	}
	return -1
}

// Commit makes every change up to m permanent: m and everything journaled
// before it are forgotten. Later marks stay usable.
func (t *Table) Commit(m *Mark) bool {
	l := &t.undo
	idx := l.indexOf(m)
	if idx < 0 {
		return false
	}
	for _, c := range l.entries[:idx+1] {
		if mk, ok := c.(*Mark); ok {
			mk.live = false
			l.marks--
		}
	}
	if l.marks == 0 {
		l.entries = nil
	} else {
		l.entries = append([]command(nil), l.entries[idx+1:]...)
	}
	return true
}
