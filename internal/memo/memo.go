// Package memo implements the minimal hook a plan family needs to carry a
// MemoRef variant without committing the core to a search-based optimizer:
// enough structure to group logically equivalent alternatives and name one
// canonical. The actual Cascades-style search that populates and explores a
// Group lives outside this module; the core only needs the representation
// to accommodate it.
package memo

// Member is anything a Group can hold as its canonical representative. A
// bound LogicNode satisfies this by returning a stable structural
// signature of itself.
type Member interface {
	MemoSign() string
}

// Group is an optimizer memo group: a set of logically equivalent plan
// alternatives, one of which is marked canonical. The core never mutates a
// Group's membership; that is the search module's job.
type Group struct {
	id        int
	canonical Member
	members   []Member
}

func NewGroup(id int, canonical Member) *Group {
	return &Group{id: id, canonical: canonical, members: []Member{canonical}}
}

func (self *Group) ID() int { return self.id }

func (self *Group) Canonical() Member { return self.canonical }

// AddMember appends an equivalent alternative to the group without
// disturbing the canonical member.
func (self *Group) AddMember(m Member) { self.members = append(self.members, m) }

func (self *Group) Members() []Member { return self.members }

// Sign delegates to the canonical member, so two MemoRefs pointing at
// groups whose canonical members are structurally identical compare equal.
func (self *Group) Sign() string {
	if self.canonical == nil {
		return ""
	}
	return self.canonical.MemoSign()
}
