package collect

import (
	"sort"

	"github.com/sells-group/revcollect/internal/dedup"
	"github.com/sells-group/revcollect/internal/review"
)

// Entry is an admitted record together with its position in the input stream.
type Entry struct {
	Index  int           `json:"index"`
	Record review.Record `json:"record"`
}

// EntityGroup holds the pools of one entity and the duplicate state used to
// fill them.
type EntityGroup struct {
	Source []Entry `json:"source"`
	Target []Entry `json:"target"`

	seen *dedup.Seen
}

func newEntityGroup() *EntityGroup {
	return &EntityGroup{seen: dedup.NewSeen()}
}

// Empty reports whether both pools are empty.
func (g *EntityGroup) Empty() bool {
	return len(g.Source) == 0 && len(g.Target) == 0
}

// Stats counts what happened to the records of one collection run.
type Stats struct {
	Scanned       int  `json:"scanned" yaml:"scanned"`
	Duplicates    int  `json:"duplicates" yaml:"duplicates"`
	Admitted      int  `json:"admitted" yaml:"admitted"`
	Entities      int  `json:"entities" yaml:"entities"`
	SourceEntries int  `json:"source_entries" yaml:"source_entries"`
	TargetEntries int  `json:"target_entries" yaml:"target_entries"`
	LimitReached  bool `json:"limit_reached" yaml:"limit_reached"`
}

// Collection maps entity ids to their source and target pools.
type Collection struct {
	Groups map[string]*EntityGroup `json:"groups"`
	Stats  Stats                   `json:"stats"`
}

func newCollection() *Collection {
	return &Collection{Groups: make(map[string]*EntityGroup)}
}

// group returns the entity's group, creating it on first reference.
func (c *Collection) group(entity string) *EntityGroup {
	g, ok := c.Groups[entity]
	if !ok {
		g = newEntityGroup()
		c.Groups[entity] = g
	}
	return g
}

// Get returns the group for entity, if present.
func (c *Collection) Get(entity string) (*EntityGroup, bool) {
	g, ok := c.Groups[entity]
	return g, ok
}

// Entities returns the entity ids in sorted order.
func (c *Collection) Entities() []string {
	ids := make([]string, 0, len(c.Groups))
	for id := range c.Groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of entities.
func (c *Collection) Len() int { return len(c.Groups) }

// finalize drops groups with both pools empty and fills the entry totals.
func (c *Collection) finalize() {
	c.Stats.SourceEntries, c.Stats.TargetEntries = 0, 0
	for id, g := range c.Groups {
		if g.Empty() {
			delete(c.Groups, id)
			continue
		}
		c.Stats.SourceEntries += len(g.Source)
		c.Stats.TargetEntries += len(g.Target)
	}
	c.Stats.Entities = len(c.Groups)
}
