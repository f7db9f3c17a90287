package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/kartr/kartr/internal/graph"
)

var _ = Describe("Build", func() {
	pairs := []Pair{
		{Sponsor: "NordVPN", Creator: "Alice"},
		{Sponsor: "NordVPN", Creator: "Alice"},
		{Sponsor: "NordVPN", Creator: "Bob"},
		{Sponsor: "Skillshare", Creator: "Bob"},
		{Sponsor: "Skillshare", Creator: "Carol"},
		{Sponsor: "  ", Creator: "Dave"},
		{Sponsor: "Audible", Creator: ""},
	}

	It("counts pairs and marks the strongest link per sponsor", func() {
		g := Build(pairs)
		Expect(g.Edges).To(Equal([]Edge{
			{Sponsor: "NordVPN", Creator: "Alice", Frequency: 2, Style: StyleSolid},
			{Sponsor: "NordVPN", Creator: "Bob", Frequency: 1, Style: StyleDash},
			{Sponsor: "Skillshare", Creator: "Bob", Frequency: 1, Style: StyleSolid},
			{Sponsor: "Skillshare", Creator: "Carol", Frequency: 1, Style: StyleSolid},
		}))
	})

	It("lists sponsors before creators and sizes nodes by degree", func() {
		g := Build(pairs)
		Expect(g.Nodes).To(Equal([]Node{
			{ID: "NordVPN", Type: NodeSponsor, Degree: 2, Size: 16},
			{ID: "Skillshare", Type: NodeSponsor, Degree: 2, Size: 16},
			{ID: "Alice", Type: NodeCreator, Degree: 1, Size: 13},
			{ID: "Bob", Type: NodeCreator, Degree: 2, Size: 16},
			{ID: "Carol", Type: NodeCreator, Degree: 1, Size: 13},
		}))
	})

	It("keeps the sponsor node when a creator shares its name", func() {
		g := Build([]Pair{{Sponsor: "Acme", Creator: "Bob"}, {Sponsor: "Bob", Creator: "Eve"}})
		types := map[string]string{}
		for _, n := range g.Nodes {
			types[n.ID] = n.Type
		}
		Expect(g.Nodes).To(HaveLen(3))
		Expect(types["Bob"]).To(Equal(NodeSponsor))
	})

	It("handles empty input", func() {
		g := Build(nil)
		Expect(g.Nodes).To(BeEmpty())
		Expect(g.Edges).To(BeEmpty())
		Expect(g.DOT()).To(Equal("graph sponsors {\n}\n"))
	})

	It("renders dashed edges in DOT", func() {
		dot := Build(pairs).DOT()
		Expect(dot).To(ContainSubstring(`"NordVPN" -- "Bob" [label=1, weight=1, style=dashed];`))
		Expect(dot).To(ContainSubstring(`"NordVPN" -- "Alice" [label=2, weight=2];`))
		Expect(dot).To(ContainSubstring(`"NordVPN" [type=sponsor, style=filled, fillcolor=lightcoral`))
	})
})
