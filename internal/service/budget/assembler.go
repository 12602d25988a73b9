package budget

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/pkg/conv"
	"github.com/sandevgo/arcus/pkg/log"
)

// RenderStyle selects the output format of the assembler.
type RenderStyle string

const (
	StyleMarkdown RenderStyle = "markdown"
	StyleXML      RenderStyle = "xml"
	StylePlain    RenderStyle = "plain"
)

func ParseRenderStyle(s string) RenderStyle {
	switch RenderStyle(s) {
	case StyleXML, StylePlain:
		return RenderStyle(s)
	}
	return StyleMarkdown
}

// defaultTitles are the section headers per category.
var defaultTitles = map[core.Category]string{
	core.CategoryProcedural: "Preferences & Workflows",
	core.CategorySemantic:   "Known Facts & Patterns",
	core.CategoryEpisodic:   "Recent Events",
	core.CategoryGraph:      "Relationships",
}

// Assembler renders a packed context into the final payload. The
// rendered size, re-estimated after formatting, never exceeds the
// packed total; formatting overhead is absorbed by trimming the
// lowest-rank item as a last resort.
type Assembler struct {
	estimator core.Estimator
	style     RenderStyle
	titles    map[core.Category]string
}

func NewAssembler(estimator core.Estimator, style RenderStyle) *Assembler {
	return &Assembler{
		estimator: estimator,
		style:     style,
		titles:    defaultTitles,
	}
}

// WithTitles overrides the default section headers.
func (a *Assembler) WithTitles(titles map[core.Category]string) *Assembler {
	merged := make(map[core.Category]string, len(defaultTitles))
	for c, t := range defaultTitles {
		merged[c] = t
	}
	for c, t := range titles {
		merged[c] = t
	}
	a.titles = merged
	return a
}

// Assemble renders the packed selection. The budget is the packed total
// capped by the allocation's available context; the final output never
// exceeds either.
func (a *Assembler) Assemble(ctx context.Context, packed core.PackedContext, alloc core.BudgetAllocation) core.ContextPayload {
	budget := packed.TotalTokens
	if alloc.AvailableForContext < budget {
		budget = alloc.AvailableForContext
	}

	// Work on a mutable copy of the item texts so trimming never
	// touches the packed result.
	texts := make(map[core.Category][]string, len(packed.Items))
	for c, items := range packed.Items {
		lines := make([]string, len(items))
		for i, it := range items {
			lines[i] = it.Item.Content
		}
		texts[c] = lines
	}

	trimmed := false
	var sections map[core.Category]string
	var text string
	var total int

	for {
		sections, text = a.render(ctx, packed, texts)
		total = a.estimator.EstimateText(text)
		if total <= budget {
			break
		}

		if !trimmed {
			log.FromCtx(ctx).Warn().
				Int("rendered", total).
				Int("budget", budget).
				Msg("rendered context exceeds packed budget, trimming")
			trimmed = true
		}
		if !trimLowestRank(packed, texts) {
			// Nothing left to trim; the payload is empty.
			break
		}
	}

	meta := core.PayloadMeta{
		TotalItems:      packed.TotalItems,
		DroppedItems:    packed.DroppedItems,
		OversizedItems:  packed.OversizedItems,
		Coverage:        packed.Coverage,
		Utilization:     packed.Utilization,
		RankingStrategy: packed.RankingStrategy,
		PackingStrategy: packed.PackingStrategy,
		Trimmed:         trimmed,
	}

	return core.ContextPayload{
		Text:        text,
		Sections:    sections,
		TotalTokens: total,
		Meta:        meta,
	}
}

func (a *Assembler) render(ctx context.Context, packed core.PackedContext, texts map[core.Category][]string) (map[core.Category]string, string) {
	sections := make(map[core.Category]string)
	var parts []string

	for _, c := range core.Categories() {
		lines := texts[c]
		if !hasContent(lines) {
			continue
		}

		var section string
		switch a.style {
		case StyleXML:
			section = renderXMLSection(c, lines)
		case StylePlain:
			section = a.renderPlainSection(ctx, c, lines)
		default:
			section = a.renderMarkdownSection(c, lines)
		}
		sections[c] = section
		parts = append(parts, section)
	}

	separator := "\n\n---\n\n"
	if a.style != StyleMarkdown {
		separator = "\n\n"
	}
	return sections, strings.Join(parts, separator)
}

func (a *Assembler) renderMarkdownSection(c core.Category, lines []string) string {
	var sb strings.Builder
	sb.WriteString("## ")
	sb.WriteString(a.titles[c])
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString("\n- ")
		sb.WriteString(flatten(line))
	}
	return sb.String()
}

func renderXMLSection(c core.Category, lines []string) string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(string(c))
	sb.WriteString(">")
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString("\n  <item>")
		xml.EscapeText(&sb, []byte(line))
		sb.WriteString("</item>")
	}
	sb.WriteString("\n</")
	sb.WriteString(string(c))
	sb.WriteString(">")
	return sb.String()
}

// renderPlainSection derives plain text from the markdown rendering.
func (a *Assembler) renderPlainSection(ctx context.Context, c core.Category, lines []string) string {
	md := a.renderMarkdownSection(c, lines)
	plain, err := conv.MarkdownToPlain([]byte(md))
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("plain rendering failed, keeping markdown")
		return md
	}
	return strings.TrimSpace(plain)
}

// trimLowestRank shortens the globally lowest-rank selected item by one
// sentence. Items are only ever cut at sentence boundaries; an item
// whose last sentence is gone is removed entirely. Returns false when
// nothing is left to trim.
func trimLowestRank(packed core.PackedContext, texts map[core.Category][]string) bool {
	type ref struct {
		category core.Category
		index    int
		rank     float64
	}

	var lowest *ref
	for _, c := range core.Categories() {
		for i, it := range packed.Items[c] {
			if i >= len(texts[c]) || texts[c][i] == "" {
				continue
			}
			if lowest == nil || it.RankScore <= lowest.rank {
				lowest = &ref{category: c, index: i, rank: it.RankScore}
			}
		}
	}
	if lowest == nil {
		return false
	}

	current := texts[lowest.category][lowest.index]
	sentences := splitSentences(current)
	if len(sentences) <= 1 {
		texts[lowest.category][lowest.index] = ""
		return true
	}
	texts[lowest.category][lowest.index] = strings.TrimSpace(
		strings.Join(sentences[:len(sentences)-1], " "),
	)
	return true
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if l != "" {
			return true
		}
	}
	return false
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
