// Package cluster identifies related-market clusters from Relations and
// maintains the debounced Frank-Wolfe recomputation service described in
// SPEC_FULL §4.8 step 1 and §4.11.
package cluster

import "github.com/usealtoal/predictarb/internal/domain"

// ID is a cluster identity: the sorted tuple of its member MarketIDs,
// joined, matching the data-model description of ClusterCache keys.
type ID string

// BuildID canonicalizes a member set into a stable cluster ID regardless
// of discovery order.
func BuildID(members []domain.MarketID) ID {
	sorted := make([]string, len(members))
	for i, m := range members {
		sorted[i] = string(m)
	}
	// Simple insertion sort: cluster sizes are small (capped by MaxSize).
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	id := ""
	for _, s := range sorted {
		id += s + ","
	}
	return ID(id)
}

// Discover builds the cluster containing market `start` by bounded BFS
// over the undirected membership graph Relations define — not a
// recursive closure, which could stack-overflow on a large or cyclic
// relation graph (SPEC_FULL Design Notes). Returns the member set and
// the relations touching it; ok is false if the cluster would exceed
// maxSize, in which case the caller must skip rather than truncate.
func Discover(start domain.MarketID, relations []domain.Relation, maxSize int) (members []domain.MarketID, touching []domain.Relation, ok bool) {
	visited := map[domain.MarketID]bool{start: true}
	queue := []domain.MarketID{start}
	var result []domain.MarketID
	result = append(result, start)

	adjacency := buildAdjacency(relations)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			result = append(result, neighbor)
			queue = append(queue, neighbor)

			if len(result) > maxSize {
				return nil, nil, false
			}
		}
	}

	for _, rel := range relations {
		for _, m := range rel.Members() {
			if visited[m] {
				touching = append(touching, rel)
				break
			}
		}
	}

	return result, touching, true
}

func buildAdjacency(relations []domain.Relation) map[domain.MarketID][]domain.MarketID {
	adjacency := make(map[domain.MarketID][]domain.MarketID)
	addEdge := func(a, b domain.MarketID) {
		adjacency[a] = append(adjacency[a], b)
		adjacency[b] = append(adjacency[b], a)
	}
	for _, rel := range relations {
		members := rel.Members()
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				addEdge(members[i], members[j])
			}
		}
	}
	return adjacency
}
