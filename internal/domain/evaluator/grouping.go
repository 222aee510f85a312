package evaluator

import (
	"slices"
	"sort"
)

// GroupingEngine keeps the pending buckets of grouped candidates. Members are
// identified by package name; a package belongs to at most one bucket.
type GroupingEngine struct {
	buckets    map[string][]string
	membership map[string]string
}

// NewGroupingEngine creates an empty engine.
func NewGroupingEngine() *GroupingEngine {
	return &GroupingEngine{
		buckets:    make(map[string][]string),
		membership: make(map[string]string),
	}
}

// Assign places member in group, moving it out of any previous group. An empty
// group removes the member from grouping altogether. It returns the previous group.
func (it *GroupingEngine) Assign(member, group string) string {
	previous, ok := it.membership[member]
	if ok && previous == group {
		return previous
	}
	if ok {
		it.remove(previous, member)
	}
	if group == "" {
		delete(it.membership, member)
		return previous
	}
	it.membership[member] = group
	it.buckets[group] = append(it.buckets[group], member)
	return previous
}

// Remove drops member from its bucket, if any.
func (it *GroupingEngine) Remove(member string) {
	group, ok := it.membership[member]
	if !ok {
		return
	}
	it.remove(group, member)
	delete(it.membership, member)
}

// GroupOf returns the bucket holding member.
func (it *GroupingEngine) GroupOf(member string) (string, bool) {
	group, ok := it.membership[member]
	return group, ok
}

// Members returns a copy of the bucket's members in insertion order.
func (it *GroupingEngine) Members(group string) []string {
	return slices.Clone(it.buckets[group])
}

// Names returns the non-empty bucket names, sorted.
func (it *GroupingEngine) Names() []string {
	names := make([]string, 0, len(it.buckets))
	for name := range it.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flush removes the given members from group once their change-set was emitted.
// The bucket disappears when it becomes empty.
func (it *GroupingEngine) Flush(group string, members []string) {
	for _, member := range members {
		if it.membership[member] == group {
			it.remove(group, member)
			delete(it.membership, member)
		}
	}
}

func (it *GroupingEngine) remove(group, member string) {
	bucket := slices.DeleteFunc(it.buckets[group], func(m string) bool { return m == member })
	if len(bucket) == 0 {
		delete(it.buckets, group)
		return
	}
	it.buckets[group] = bucket
}
