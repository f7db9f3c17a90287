// Package graph builds the sponsor/creator relationship graph from analysis
// rows.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

const (
	NodeSponsor = "sponsor"
	NodeCreator = "creator"

	StyleSolid = "solid"
	StyleDash  = "dash"
)

type Pair struct {
	Sponsor string
	Creator string
}

type Node struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Degree int    `json:"degree"`
	Size   int    `json:"size"`
}

// Edge links a sponsor to a creator. Style is solid for the sponsor's most
// frequent creator(s) and dash otherwise.
type Edge struct {
	Sponsor   string `json:"source"`
	Creator   string `json:"target"`
	Frequency int    `json:"frequency"`
	Style     string `json:"style"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build groups pairs by (sponsor, creator). Pairs with a blank side are
// ignored. Edges come out sorted by sponsor, then creator.
func Build(pairs []Pair) *Graph {
	freq := map[Pair]int{}
	for _, p := range pairs {
		p.Sponsor, p.Creator = strings.TrimSpace(p.Sponsor), strings.TrimSpace(p.Creator)
		if p.Sponsor == "" || p.Creator == "" {
			continue
		}
		freq[p]++
	}

	g := &Graph{Nodes: []Node{}, Edges: make([]Edge, 0, len(freq))}
	maxPerSponsor := map[string]int{}
	for p, n := range freq {
		g.Edges = append(g.Edges, Edge{Sponsor: p.Sponsor, Creator: p.Creator, Frequency: n})
		if n > maxPerSponsor[p.Sponsor] {
			maxPerSponsor[p.Sponsor] = n
		}
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Sponsor != g.Edges[j].Sponsor {
			return g.Edges[i].Sponsor < g.Edges[j].Sponsor
		}
		return g.Edges[i].Creator < g.Edges[j].Creator
	})

	degree := map[string]int{}
	for i := range g.Edges {
		e := &g.Edges[i]
		e.Style = StyleDash
		if e.Frequency == maxPerSponsor[e.Sponsor] {
			e.Style = StyleSolid
		}
		degree[e.Sponsor]++
		degree[e.Creator]++
	}

	index := map[string]struct{}{}
	addNode := func(id, kind string) {
		if _, ok := index[id]; ok {
			return
		}
		index[id] = struct{}{}
		g.Nodes = append(g.Nodes, Node{ID: id, Type: kind, Degree: degree[id], Size: degree[id]*3 + 10})
	}
	for _, e := range g.Edges {
		addNode(e.Sponsor, NodeSponsor)
	}
	for _, e := range g.Edges {
		addNode(e.Creator, NodeCreator)
	}
	return g
}

// DOT renders the graph in Graphviz format.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("graph sponsors {\n")
	for _, n := range g.Nodes {
		color := "lightblue"
		if n.Type == NodeSponsor {
			color = "lightcoral"
		}
		fmt.Fprintf(&b, "  %q [type=%s, style=filled, fillcolor=%s, width=%.2f];\n", n.ID, n.Type, color, float64(n.Size)/20)
	}
	for _, e := range g.Edges {
		attrs := fmt.Sprintf("label=%d, weight=%d", e.Frequency, e.Frequency)
		if e.Style == StyleDash {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&b, "  %q -- %q [%s];\n", e.Sponsor, e.Creator, attrs)
	}
	b.WriteString("}\n")
	return b.String()
}
