package vast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVAST = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0">
  <Ad id="ad-1">
    <InLine>
      <AdSystem>TestAds</AdSystem>
      <AdTitle>Sample Spot</AdTitle>
      <Impression id="imp-1"><![CDATA[https://track.example.com/imp?id=1]]></Impression>
      <Impression id="imp-2"><![CDATA[https://track.example.com/imp?id=2]]></Impression>
      <Creatives>
        <Creative id="cr-1">
          <Linear skipoffset="00:00:06">
            <Duration>00:00:15</Duration>
            <TrackingEvents>
              <Tracking event="firstQuartile"><![CDATA[https://track.example.com/q1]]></Tracking>
              <Tracking event="midpoint"><![CDATA[https://track.example.com/mid]]></Tracking>
              <Tracking event="complete"><![CDATA[https://track.example.com/done]]></Tracking>
            </TrackingEvents>
            <VideoClicks>
              <ClickThrough><![CDATA[https://brand.example.com/landing]]></ClickThrough>
              <ClickTracking><![CDATA[https://track.example.com/click]]></ClickTracking>
            </VideoClicks>
            <MediaFiles>
              <MediaFile delivery="streaming" type="application/x-mpegURL"><![CDATA[https://cdn.example.com/ad.m3u8]]></MediaFile>
              <MediaFile delivery="progressive" type="video/mp4" width="1280" height="720" bitrate="2500"><![CDATA[https://cdn.example.com/ad.mp4]]></MediaFile>
            </MediaFiles>
          </Linear>
        </Creative>
      </Creatives>
    </InLine>
  </Ad>
</VAST>`

func newTestResolver() *Resolver {
	return NewResolver(5*time.Second, 30, 5)
}

func TestResolve_FullDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(testVAST))
	}))
	defer server.Close()

	meta, err := newTestResolver().Resolve(context.Background(), server.URL)

	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 15.0, meta.Duration)
	assert.Equal(t, 6.0, meta.SkipOffset)
	assert.Equal(t, "https://brand.example.com/landing", meta.ClickThrough)
	assert.Equal(t, "https://cdn.example.com/ad.mp4", meta.MediaURL)
	require.NotNil(t, meta.Ad)
	require.NotNil(t, meta.Creative)
	assert.Equal(t, "ad-1", meta.Ad.ID)
	assert.Len(t, meta.Ad.InLine.ImpressionURLs(), 2)
}

func TestResolve_EmptyLocator(t *testing.T) {
	meta, err := newTestResolver().Resolve(context.Background(), "   ")

	assert.Nil(t, meta)
	assert.ErrorIs(t, err, ErrAdFetch)
}

func TestResolve_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	meta, err := newTestResolver().Resolve(context.Background(), server.URL)

	assert.Nil(t, meta)
	assert.ErrorIs(t, err, ErrAdFetch)
}

func TestResolve_MalformedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<VAST><Ad></VAST>"))
	}))
	defer server.Close()

	meta, err := newTestResolver().Resolve(context.Background(), server.URL)

	assert.Nil(t, meta)
	assert.ErrorIs(t, err, ErrAdParse)
}

func TestResolve_NoPlayableCreative(t *testing.T) {
	// Linear creative with no media files at all.
	raw := `<VAST version="3.0"><Ad id="a"><InLine><AdSystem>x</AdSystem><AdTitle>t</AdTitle>
<Creatives><Creative><Linear><Duration>00:00:10</Duration><MediaFiles></MediaFiles></Linear></Creative></Creatives>
</InLine></Ad></VAST>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(raw))
	}))
	defer server.Close()

	meta, err := newTestResolver().Resolve(context.Background(), server.URL)

	assert.Nil(t, meta)
	assert.True(t, IsNoPlayableCreative(err))
}

func TestResolveDocument_DefaultsWhenDurationMissing(t *testing.T) {
	doc := &VAST{Ads: []Ad{{
		ID: "a",
		InLine: &InLine{Creatives: Creatives{Creative: []Creative{{
			Linear: &Linear{
				Duration: "garbage",
				MediaFiles: MediaFiles{MediaFile: []MediaFile{{
					Delivery: "progressive", Type: "video/mp4", URL: "https://cdn.example.com/a.mp4",
				}}},
			},
		}}}},
	}}}

	meta, err := newTestResolver().ResolveDocument(doc)

	require.NoError(t, err)
	assert.Equal(t, 30.0, meta.Duration)
	assert.Equal(t, 5.0, meta.SkipOffset)
	assert.Empty(t, meta.ClickThrough)
}

func TestResolveDocument_ClickThroughPrecedence(t *testing.T) {
	buildDoc := func(creativeLevel, adLevel, trackingLevel string) *VAST {
		var clicks *VideoClicks
		if creativeLevel != "" {
			clicks = &VideoClicks{ClickThrough: creativeLevel}
		}
		var tracking *ClickTracking
		if trackingLevel != "" {
			tracking = &ClickTracking{URL: "https://track.example.com/c", ClickThrough: trackingLevel}
		}
		return &VAST{Ads: []Ad{{
			InLine: &InLine{
				ClickThrough:  adLevel,
				ClickTracking: tracking,
				Creatives: Creatives{Creative: []Creative{{
					Linear: &Linear{
						Duration:    "00:00:10",
						VideoClicks: clicks,
						MediaFiles:  MediaFiles{MediaFile: []MediaFile{{URL: "https://cdn.example.com/a.mp4"}}},
					},
				}}},
			},
		}}}
	}

	testCases := []struct {
		name     string
		doc      *VAST
		expected string
	}{
		{"CreativeLevelWins", buildDoc("https://a/creative", "https://a/ad", "https://a/tracking"), "https://a/creative"},
		{"AdLevelWhenNoCreative", buildDoc("", "https://a/ad", "https://a/tracking"), "https://a/ad"},
		{"TrackingFallback", buildDoc("", "", "https://a/tracking"), "https://a/tracking"},
		{"AllAbsent", buildDoc("", "", ""), ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			meta, err := newTestResolver().ResolveDocument(tc.doc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, meta.ClickThrough)
		})
	}
}

func TestPlayableMediaFile_PrefersProgressiveVideo(t *testing.T) {
	linear := &Linear{MediaFiles: MediaFiles{MediaFile: []MediaFile{
		{Delivery: "streaming", Type: "application/x-mpegURL", URL: "https://cdn/a.m3u8"},
		{Delivery: "progressive", Type: "video/webm", URL: "https://cdn/a.webm"},
	}}}

	mf := linear.PlayableMediaFile()

	require.NotNil(t, mf)
	assert.Equal(t, "https://cdn/a.webm", mf.URL)
}

func TestPlayableMediaFile_FallsBackToFirstUsable(t *testing.T) {
	linear := &Linear{MediaFiles: MediaFiles{MediaFile: []MediaFile{
		{Delivery: "streaming", Type: "application/x-mpegURL", URL: "  "},
		{Delivery: "streaming", Type: "application/x-mpegURL", URL: "https://cdn/a.m3u8"},
	}}}

	mf := linear.PlayableMediaFile()

	require.NotNil(t, mf)
	assert.Equal(t, "https://cdn/a.m3u8", mf.URL)
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		in       string
		expected float64
	}{
		{"00:00:15", 15},
		{"00:01:30", 90},
		{"01:02:03", 3723},
		{"00:00:10.5", 10.5},
		{"90", 0},
		{"1:30", 0},
		{"aa:bb:cc", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, parseClock(tc.in), "input %q", tc.in)
	}
}

func TestLinear_TrackingURLs(t *testing.T) {
	doc, err := Parse([]byte(testVAST))
	require.NoError(t, err)

	linear := doc.Ads[0].InLine.Creatives.Creative[0].Linear
	assert.Equal(t, []string{"https://track.example.com/mid"}, linear.TrackingURLs("midpoint"))
	assert.Empty(t, linear.TrackingURLs("thirdQuartile"))
	assert.Equal(t, []string{"https://track.example.com/click"}, linear.ClickTrackingURLs())
}
