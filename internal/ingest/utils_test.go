package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "year quarter prefix", input: "2024-Q3-Annual Widget Report.pdf", expected: "Annual Widget Report"},
		{name: "no hyphens", input: "NoHyphens.pdf", expected: "NoHyphens"},
		{name: "extra hyphens stay in title", input: "2024-Q3-Widget-Pro Guide.pdf", expected: "Widget-Pro Guide"},
		{name: "surrounding spaces trimmed", input: "2024 - Q3 -  Spaced Title .pdf", expected: "Spaced Title"},
		{name: "single hyphen", input: "Vendor-Guide.pdf", expected: "Guide"},
		{name: "directory ignored", input: "/data/2024/2024-Q1-Deep Dive.pdf", expected: "Deep Dive"},
		{name: "upper case extension", input: "2024-Q3-Loud.PDF", expected: "Loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Title(tt.input))
		})
	}
}

func TestPDFTitleIsDerived(t *testing.T) {
	p := PDF{Path: "/x/2024-Q3-Report.pdf", Name: "2024-Q3-Report.pdf"}
	assert.Equal(t, "Report", p.Title())
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.git"))
	assert.True(t, IsHidden(".DS_Store"))
	assert.False(t, IsHidden("/a/b.pdf"))
	assert.False(t, IsHidden("."))
}
