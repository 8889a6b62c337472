package schedule

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Document is a parsed ad playlist: the ad server's declaration of where
// breaks sit on the content timeline and which ad documents fill them.
type Document struct {
	XMLName xml.Name     `xml:"AdPlaylist"`
	Version string       `xml:"version,attr"`
	Breaks  []BreakEntry `xml:"AdBreak"`
}

// BreakEntry is one raw <AdBreak> element before time resolution.
type BreakEntry struct {
	TimeOffset string    `xml:"timeOffset,attr"`
	BreakID    string    `xml:"breakId,attr"`
	Source     *AdSource `xml:"AdSource"`
}

// AdSource carries the ad document locator, either as plain character data
// or wrapped in a nested <AdTagURI> element.
type AdSource struct {
	ID       string `xml:"id,attr"`
	URI      string `xml:",chardata"`
	AdTagURI string `xml:"AdTagURI"`
}

// Locator returns the ad document URI for this source, preferring the nested
// AdTagURI element over plain character data. Empty when neither is present.
func (s *AdSource) Locator() string {
	if s == nil {
		return ""
	}
	if uri := strings.TrimSpace(s.AdTagURI); uri != "" {
		return uri
	}
	return strings.TrimSpace(s.URI)
}

// ParseDocument decodes an XML ad playlist.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleParse, err)
	}
	return &doc, nil
}
