package config

import "github.com/sandevgo/arcus/internal/core"

const defaultContextLimit = 128000

// modelContextLimits maps known model identifiers to their context
// window sizes in tokens.
var modelContextLimits = map[string]int{
	"claude-opus":      200000,
	"claude-sonnet":    200000,
	"claude-haiku":     200000,
	"gemini-3-pro":     1048576,
	"gemini-3-flash":   1048576,
	"gemini-2.5-flash": 1048576,
	"personaplex":      32000,
	"deep-research":    1048576,
}

func ModelContextLimit(model string) int {
	if limit, ok := modelContextLimits[model]; ok {
		return limit
	}
	return defaultContextLimit
}

// taskWeights holds per-task weight presets for callers that name a
// task profile instead of passing explicit weights.
var taskWeights = map[string]map[core.Category]float64{
	"code_review": {
		core.CategoryProcedural: 0.40,
		core.CategorySemantic:   0.35,
		core.CategoryEpisodic:   0.15,
		core.CategoryGraph:      0.10,
	},
	"document_analysis": {
		core.CategorySemantic:   0.45,
		core.CategoryProcedural: 0.25,
		core.CategoryEpisodic:   0.20,
		core.CategoryGraph:      0.10,
	},
	"conversation": {
		core.CategoryEpisodic:   0.40,
		core.CategoryProcedural: 0.30,
		core.CategorySemantic:   0.20,
		core.CategoryGraph:      0.10,
	},
	"research": {
		core.CategorySemantic:   0.50,
		core.CategoryEpisodic:   0.20,
		core.CategoryProcedural: 0.20,
		core.CategoryGraph:      0.10,
	},
	"voice_response": {
		core.CategoryProcedural: 0.50,
		core.CategorySemantic:   0.25,
		core.CategoryEpisodic:   0.20,
		core.CategoryGraph:      0.05,
	},
	"relationship_query": {
		core.CategoryGraph:      0.50,
		core.CategorySemantic:   0.25,
		core.CategoryEpisodic:   0.15,
		core.CategoryProcedural: 0.10,
	},
}

// TaskWeights returns the preset for a named task profile, or nil when
// the task is unknown so the caller falls back to configured defaults.
func TaskWeights(task string) map[core.Category]float64 {
	return taskWeights[task]
}
