package model

// Game is an entry of the cave game catalog.
type Game struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Skill  string `json:"skill"`
	MinAge int    `json:"min_age"`
	Path   string `json:"path"`
}

// Games lists the portals available in the cave, in display order.
var Games = []Game{
	{Slug: "path-tracer", Title: "Beetle on the Way Home", Skill: "fine motor control", MinAge: 3, Path: "/cave/path-tracer"},
	{Slug: "bubble-pop", Title: "Bubble Party", Skill: "hand-eye coordination", MinAge: 2, Path: "/cave/bubble-pop"},
	{Slug: "shape-sorter", Title: "Shape Sorter", Skill: "shape recognition", MinAge: 2, Path: "/cave/shape-sorter"},
	{Slug: "story-time", Title: "Story Time", Skill: "listening", MinAge: 2, Path: "/cave/story-time"},
	{Slug: "garden-path", Title: "Garden Path", Skill: "sequencing", MinAge: 3, Path: "/cave/garden-path"},
}
