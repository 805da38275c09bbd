package model

// Built-in seed data. A cold start with no prior cache and no reachable
// remote store serves these so the site never renders empty.

// DefaultProjects is the seed project gallery.
var DefaultProjects = []Doc{
	{
		"id":          "proj_1001",
		"name":        "E-Commerce Platform",
		"description": "A full-stack e-commerce solution with React, Node.js, and MongoDB. Features include user authentication, payment integration, and admin dashboard.",
		"image":       "https://images.unsplash.com/photo-1556742049-0cfed4f6a45d?w=600&h=400&fit=crop",
		"link":        "https://github.com",
		"featured":    true,
	},
	{
		"id":          "proj_1002",
		"name":        "AI Chat Application",
		"description": "Real-time chat application powered by AI. Built with Next.js, WebSocket, and OpenAI API for intelligent conversations.",
		"image":       "https://images.unsplash.com/photo-1677442136019-21780ecad995?w=600&h=400&fit=crop",
		"link":        "https://github.com",
		"featured":    true,
	},
	{
		"id":          "proj_1003",
		"name":        "Portfolio Dashboard",
		"description": "A dynamic portfolio management system with analytics, project tracking, and customizable themes.",
		"image":       "https://images.unsplash.com/photo-1460925895917-afdab827c52f?w=600&h=400&fit=crop",
		"link":        "https://github.com",
		"featured":    true,
	},
}

// DefaultAchievements is the seed timeline.
var DefaultAchievements = []Doc{
	{
		"id":          "ach_1001",
		"title":       "Best Developer Award 2024",
		"description": "Recognized for outstanding contribution to open-source projects and innovative solutions.",
		"icon":        "🏆",
		"date":        "2024",
	},
	{
		"id":          "ach_1002",
		"title":       "Hackathon Winner",
		"description": "First place in the National Coding Championship among 500+ participants.",
		"icon":        "🥇",
		"date":        "2023",
	},
	{
		"id":          "ach_1003",
		"title":       "Tech Speaker",
		"description": "Delivered keynote presentations at major tech conferences on modern web development.",
		"icon":        "🎤",
		"date":        "2023",
	},
	{
		"id":          "ach_1004",
		"title":       "100+ Projects Completed",
		"description": "Successfully delivered over 100 client projects across various industries.",
		"icon":        "✨",
		"date":        "2024",
	},
}

// DefaultAnalysis is the seed set of statistics cards. The values mirror
// the per-service fallback totals used by the statistics aggregator.
var DefaultAnalysis = []Doc{
	{"id": "ana_1001", "title": "Codeforces Solved", "value": "696", "image": "", "icon": "📊"},
	{"id": "ana_1002", "title": "GitHub Repos", "value": "3", "image": "", "icon": "🐙"},
	{"id": "ana_1003", "title": "AtCoder Solved", "value": "131", "image": "", "icon": "🍙"},
	{"id": "ana_1004", "title": "VJudge Solved", "value": "904", "image": "", "icon": "⚖️"},
}

// DefaultHero is the seed hero profile.
var DefaultHero = Doc{
	"name":        "Md.Fahim Ahmed",
	"tagline":     "Full Stack Developer & Creative Technologist",
	"description": "I craft beautiful, high-performance web experiences that blend stunning design with cutting-edge technology. Passionate about creating digital solutions that make a difference.",
	"image":       "/port.jpg",
}

// DefaultsFor returns the seed dataset for a collection, or nil when the
// collection has no seed.
func DefaultsFor(collection string) []Doc {
	switch collection {
	case CollectionProjects:
		return cloneDocs(DefaultProjects)
	case CollectionAchievements:
		return cloneDocs(DefaultAchievements)
	case CollectionAnalysis:
		return cloneDocs(DefaultAnalysis)
	default:
		return nil
	}
}

func cloneDocs(docs []Doc) []Doc {
	out := make([]Doc, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
