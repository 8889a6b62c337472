package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to build a document from raw entries
func docWithEntries(entries ...BreakEntry) *Document {
	return &Document{Version: "1.0", Breaks: entries}
}

func entryAt(offset, breakID, uri string) BreakEntry {
	return BreakEntry{
		TimeOffset: offset,
		BreakID:    breakID,
		Source:     &AdSource{URI: uri},
	}
}

func TestParseTimeOffset(t *testing.T) {
	const contentDuration = 600.0

	testCases := []struct {
		name     string
		expr     string
		expected float64
	}{
		{"StartToken", "start", 0},
		{"EndToken", "end", contentDuration},
		{"HMS", "00:01:30", 90},
		{"HMSWithHours", "01:00:00", 3600},
		{"MinutesSeconds", "1:30", 90},
		{"FractionalSeconds", "00:00:10.5", 10.5},
		{"MissingComponents", "::30", 30},
		{"NonNumericComponent", "aa:bb:30", 30},
		{"PlainNumber", "42", 0},
		{"Garbage", "whenever", 0},
		{"Empty", "", 0},
		{"NegativeComponent", "-1:00:30", 30},
		{"Whitespace", "  start  ", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseTimeOffset(tc.expr, contentDuration))
		})
	}
}

func TestBuild_SortedWithStableOrdinals(t *testing.T) {
	builder := NewBuilder(30, 5)

	// Document order: mid-roll first, then pre-roll. Ordinals follow document
	// order; the returned list is sorted by content time.
	doc := docWithEntries(
		entryAt("00:10:00", "mid", "https://ads.example.com/vast?slot=mid"),
		entryAt("start", "pre", "https://ads.example.com/vast?slot=pre"),
	)

	breaks := builder.Build(doc, 1200)

	require.Len(t, breaks, 2)
	assert.Equal(t, "pre", breaks[0].ID)
	assert.Equal(t, 0.0, breaks[0].ContentTime)
	assert.Equal(t, 1, breaks[0].OrdinalIndex)
	assert.Equal(t, "mid", breaks[1].ID)
	assert.Equal(t, 600.0, breaks[1].ContentTime)
	assert.Equal(t, 0, breaks[1].OrdinalIndex)
}

func TestBuild_SortedNonDecreasing(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(
		entryAt("end", "post", "https://ads.example.com/1"),
		entryAt("00:05:00", "mid2", "https://ads.example.com/2"),
		entryAt("start", "pre", "https://ads.example.com/3"),
		entryAt("00:02:00", "mid1", "https://ads.example.com/4"),
	)

	breaks := builder.Build(doc, 900)

	require.Len(t, breaks, 4)
	for i := 1; i < len(breaks); i++ {
		assert.LessOrEqual(t, breaks[i-1].ContentTime, breaks[i].ContentTime)
	}
	for _, b := range breaks {
		assert.NotEmpty(t, b.AdTagURI)
	}
}

func TestBuild_DiscardsEntriesWithoutLocator(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(
		BreakEntry{TimeOffset: "start", Source: nil},
		BreakEntry{TimeOffset: "00:01:00", Source: &AdSource{URI: "   "}},
		entryAt("00:02:00", "", "https://ads.example.com/vast"),
	)

	breaks := builder.Build(doc, 600)

	// Only the third entry survives, and ordinals count kept entries only.
	require.Len(t, breaks, 1)
	assert.Equal(t, 0, breaks[0].OrdinalIndex)
	assert.Equal(t, "break_0", breaks[0].ID)
	assert.Equal(t, 120.0, breaks[0].ContentTime)
}

func TestBuild_GeneratedAndProvidedIDs(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(
		entryAt("start", "", "https://ads.example.com/1"),
		entryAt("00:01:00", "my-break", "https://ads.example.com/2"),
		entryAt("00:02:00", "", "https://ads.example.com/3"),
	)

	breaks := builder.Build(doc, 600)

	require.Len(t, breaks, 3)
	assert.Equal(t, "break_0", breaks[0].ID)
	assert.Equal(t, "my-break", breaks[1].ID)
	assert.Equal(t, "break_2", breaks[2].ID)
}

func TestBuild_NestedAdTagURIPreferred(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(BreakEntry{
		TimeOffset: "start",
		Source: &AdSource{
			URI:      "\n  ",
			AdTagURI: " https://ads.example.com/wrapped ",
		},
	})

	breaks := builder.Build(doc, 600)

	require.Len(t, breaks, 1)
	assert.Equal(t, "https://ads.example.com/wrapped", breaks[0].AdTagURI)
}

func TestBuild_DefaultsApplied(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(entryAt("00:01:00", "b", "https://ads.example.com/vast"))

	breaks := builder.Build(doc, 600)

	require.Len(t, breaks, 1)
	assert.Equal(t, 30.0, breaks[0].Duration)
	assert.Equal(t, 5.0, breaks[0].SkipOffset)
	assert.False(t, breaks[0].Resolved)
	assert.Equal(t, "00:01:00", breaks[0].DeclaredOffset)
}

func TestBuild_TiesKeepDocumentOrder(t *testing.T) {
	builder := NewBuilder(30, 5)
	doc := docWithEntries(
		entryAt("00:05:00", "first", "https://ads.example.com/1"),
		entryAt("00:05:00", "second", "https://ads.example.com/2"),
	)

	breaks := builder.Build(doc, 600)

	require.Len(t, breaks, 2)
	assert.Equal(t, "first", breaks[0].ID)
	assert.Equal(t, "second", breaks[1].ID)
}

func TestBuild_NilDocument(t *testing.T) {
	builder := NewBuilder(30, 5)
	assert.Nil(t, builder.Build(nil, 600))
}

func TestParseDocument_Valid(t *testing.T) {
	raw := `<?xml version="1.0" encoding="UTF-8"?>
<AdPlaylist version="1.0">
  <AdBreak timeOffset="start" breakId="pre-1">
    <AdSource>https://ads.example.com/vast?slot=pre</AdSource>
  </AdBreak>
  <AdBreak timeOffset="00:05:30">
    <AdSource><AdTagURI><![CDATA[https://ads.example.com/vast?slot=mid]]></AdTagURI></AdSource>
  </AdBreak>
</AdPlaylist>`

	doc, err := ParseDocument([]byte(raw))

	require.NoError(t, err)
	require.Len(t, doc.Breaks, 2)
	assert.Equal(t, "pre-1", doc.Breaks[0].BreakID)
	assert.Equal(t, "https://ads.example.com/vast?slot=pre", doc.Breaks[0].Source.Locator())
	assert.Equal(t, "https://ads.example.com/vast?slot=mid", doc.Breaks[1].Source.Locator())
}

func TestParseDocument_Invalid(t *testing.T) {
	_, err := ParseDocument([]byte("<AdPlaylist><AdBreak></AdPlaylist>"))

	require.Error(t, err)
	assert.True(t, IsParseError(err))
}
