package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cuepoint/internal/logger"
	"cuepoint/internal/models"
)

// Default placeholder timing applied to every break until its ad metadata
// resolves.
const (
	DefaultBreakDuration = 30.0
	DefaultSkipOffset    = 5.0
)

// Builder turns a parsed schedule document into the ordered break list the
// reconciler runs against.
type Builder struct {
	defaultDuration   float64
	defaultSkipOffset float64
}

// NewBuilder creates a builder. Non-positive duration or negative skip offset
// fall back to the package defaults.
func NewBuilder(defaultDuration, defaultSkipOffset float64) *Builder {
	if defaultDuration <= 0 {
		defaultDuration = DefaultBreakDuration
	}
	if defaultSkipOffset < 0 {
		defaultSkipOffset = DefaultSkipOffset
	}
	return &Builder{
		defaultDuration:   defaultDuration,
		defaultSkipOffset: defaultSkipOffset,
	}
}

// Build resolves each entry's time expression, discards entries without an ad
// document locator, assigns ordinals in document order among kept entries, and
// returns the list sorted ascending by content time. The sort is stable, so
// entries declaring the same offset keep document order. Ordinals are assigned
// before the sort and never reassigned; cumulative-duration math depends on
// them staying fixed.
func (b *Builder) Build(doc *Document, contentDuration float64) []*models.Break {
	if doc == nil {
		return nil
	}

	kept := make([]*models.Break, 0, len(doc.Breaks))
	for _, entry := range doc.Breaks {
		locator := entry.Source.Locator()
		if locator == "" {
			logger.Log.Debug().
				Str("time_offset", entry.TimeOffset).
				Str("break_id", entry.BreakID).
				Msg("discarding ad break without ad tag URI")
			continue
		}

		ordinal := len(kept)
		id := entry.BreakID
		if id == "" {
			id = fmt.Sprintf("break_%d", ordinal)
		}

		contentTime := ParseTimeOffset(entry.TimeOffset, contentDuration)
		kept = append(kept, models.NewBreak(ordinal, id, entry.TimeOffset, contentTime, locator, b.defaultDuration, b.defaultSkipOffset))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ContentTime < kept[j].ContentTime
	})

	return kept
}

// ParseTimeOffset resolves a schedule time expression to seconds on the
// content timeline. "start" maps to 0, "end" to the content duration, and a
// colon-separated H:M:S string to its second count with missing or
// non-numeric components read as 0 (a two-part expression reads as M:S).
// Anything else resolves to 0: a malformed offset becomes a pre-roll rather
// than an error.
func ParseTimeOffset(expr string, contentDuration float64) float64 {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "start":
		return 0
	case "end":
		return contentDuration
	}

	if !strings.Contains(expr, ":") {
		return 0
	}

	parts := strings.Split(expr, ":")
	if len(parts) == 2 {
		parts = []string{"0", parts[0], parts[1]}
	}
	return component(parts[0])*3600 + component(parts[1])*60 + component(parts[2])
}

// component reads one clock component, treating anything unparseable as 0.
func component(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
