package internal

import (
	"sort"

	"github.com/flagmill/go-server-sdk/interfaces"
	"github.com/flagmill/go-server-sdk/ldmodel"
	"github.com/flagmill/go-server-sdk/ldvalue"
)

// itemRef identifies one stored item of any kind.
type itemRef struct {
	kind interfaces.StoreDataKind
	key  string
}

type itemRefSet map[itemRef]struct{}

func (s itemRefSet) put(ref itemRef) {
	s[ref] = struct{}{}
}

func (s itemRefSet) has(ref itemRef) bool {
	_, found := s[ref]
	return found
}

// directDependencies returns the items a stored item refers to: for a feature flag, its
// prerequisite flags and every segment named in a segmentMatch clause. Segments do not
// refer to anything.
func directDependencies(kind interfaces.StoreDataKind, item interfaces.StoreItemDescriptor) itemRefSet {
	if kind != interfaces.DataKindFeatures() {
		return nil
	}
	flag, ok := item.Item.(*ldmodel.FeatureFlag)
	if !ok {
		return nil
	}
	var refs itemRefSet
	add := func(ref itemRef) {
		if refs == nil {
			refs = make(itemRefSet)
		}
		refs.put(ref)
	}
	for _, prereq := range flag.Prerequisites {
		add(itemRef{interfaces.DataKindFeatures(), prereq.Key})
	}
	for _, rule := range flag.Rules {
		for _, clause := range rule.Clauses {
			if clause.Op != ldmodel.OperatorSegmentMatch {
				continue
			}
			for _, value := range clause.Values {
				if value.Type() == ldvalue.StringType {
					add(itemRef{interfaces.DataKindSegments(), value.StringValue()})
				}
			}
		}
	}
	return refs
}

// orderForStoreInit sorts a full data set so that a store writing it item by item never
// holds a dangling reference: segments before flags, and each prerequisite flag before the
// flags that use it.
func orderForStoreInit(allData []interfaces.StoreCollection) []interfaces.StoreCollection {
	ordered := make([]interfaces.StoreCollection, 0, len(allData))
	for _, coll := range allData {
		if coll.Kind == interfaces.DataKindFeatures() {
			ordered = append(ordered, interfaces.StoreCollection{
				Kind:  coll.Kind,
				Items: orderByDependencies(coll.Kind, coll.Items),
			})
		} else {
			ordered = append(ordered, coll)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return writePriority(ordered[i].Kind) < writePriority(ordered[j].Kind)
	})
	return ordered
}

// Segments are written before features; any future kind comes after both.
func writePriority(kind interfaces.StoreDataKind) int {
	switch kind.GetName() {
	case "segments":
		return 0
	case "features":
		return 1
	default:
		return len(kind.GetName()) + 2
	}
}

func orderByDependencies(
	kind interfaces.StoreDataKind,
	items []interfaces.StoreKeyedItemDescriptor,
) []interfaces.StoreKeyedItemDescriptor {
	pending := make(map[string]interfaces.StoreItemDescriptor, len(items))
	for _, item := range items {
		pending[item.Key] = item.Item
	}
	out := make([]interfaces.StoreKeyedItemDescriptor, 0, len(items))
	for len(pending) > 0 {
		for key := range pending {
			out = appendDependenciesFirst(kind, key, pending, out)
			break
		}
	}
	return out
}

func appendDependenciesFirst(
	kind interfaces.StoreDataKind,
	key string,
	pending map[string]interfaces.StoreItemDescriptor,
	out []interfaces.StoreKeyedItemDescriptor,
) []interfaces.StoreKeyedItemDescriptor {
	item := pending[key]
	delete(pending, key) // marks the item as visited, so reference cycles terminate
	for ref := range directDependencies(kind, item) {
		if ref.kind != kind {
			continue
		}
		if _, stillPending := pending[ref.key]; stillPending {
			out = appendDependenciesFirst(kind, ref.key, pending, out)
		}
	}
	return append(out, interfaces.StoreKeyedItemDescriptor{Key: key, Item: item})
}

// dependencyGraph records which items refer to which other items, in both directions, so
// that a change to one item can be expanded to the set of items whose evaluation results
// may have changed with it.
type dependencyGraph struct {
	refsFrom map[itemRef]itemRefSet
	refsTo   map[itemRef]itemRefSet
}

func newDependencyGraph() *dependencyGraph {
	g := &dependencyGraph{}
	g.clear()
	return g
}

func (g *dependencyGraph) clear() {
	g.refsFrom = make(map[itemRef]itemRefSet)
	g.refsTo = make(map[itemRef]itemRefSet)
}

// itemChanged re-links the graph edges for one item after it has been added or updated.
func (g *dependencyGraph) itemChanged(
	kind interfaces.StoreDataKind,
	key string,
	item interfaces.StoreItemDescriptor,
) {
	source := itemRef{kind, key}
	for oldRef := range g.refsFrom[source] {
		if dependents := g.refsTo[oldRef]; dependents != nil {
			delete(dependents, source)
		}
	}
	newRefs := directDependencies(kind, item)
	g.refsFrom[source] = newRefs
	for ref := range newRefs {
		dependents := g.refsTo[ref]
		if dependents == nil {
			dependents = make(itemRefSet)
			g.refsTo[ref] = dependents
		}
		dependents.put(source)
	}
}

// collectDependents adds start, plus everything that directly or transitively refers to
// it, to the given set.
func (g *dependencyGraph) collectDependents(out itemRefSet, start itemRef) {
	if out.has(start) {
		return
	}
	out.put(start)
	for dependent := range g.refsTo[start] {
		g.collectDependents(out, dependent)
	}
}
