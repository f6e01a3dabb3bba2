package particle

import "fmt"

// Group is an ordered list of particle tags. It defines the iteration
// domain for all per-step active-force kernels; membership order is
// stable until the group is rebuilt.
type Group struct {
	tags []uint32
}

// NewGroupAll creates a group containing every particle in d, in tag order.
func NewGroupAll(d *Data) *Group {
	tags := make([]uint32, d.NGlobal())
	for i := range tags {
		tags[i] = uint32(i)
	}
	return &Group{tags: tags}
}

// NewGroupTags creates a group from an explicit tag list. The list is
// copied; duplicate tags are rejected.
func NewGroupTags(d *Data, tags []uint32) (*Group, error) {
	seen := make(map[uint32]struct{}, len(tags))
	for _, t := range tags {
		if int(t) >= d.NGlobal() {
			return nil, fmt.Errorf("particle: tag %d out of range (N=%d)", t, d.NGlobal())
		}
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("particle: duplicate tag %d in group", t)
		}
		seen[t] = struct{}{}
	}
	out := make([]uint32, len(tags))
	copy(out, tags)
	return &Group{tags: out}, nil
}

// Len returns the number of group members.
func (g *Group) Len() int { return len(g.tags) }

// MemberTag returns the tag of the i-th group member.
func (g *Group) MemberTag(i int) uint32 { return g.tags[i] }

// Tags returns the ordered member tag list, read-only by convention.
func (g *Group) Tags() []uint32 { return g.tags }
