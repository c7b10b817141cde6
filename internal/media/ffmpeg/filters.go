package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder assembles an ffmpeg -vf filter chain.
type FilterBuilder struct {
	filters []string
}

func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{filters: make([]string, 0, 4)}
}

// Scale adds a scale filter. Non-positive dimensions are ignored so
// callers can chain unconditionally.
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Crop adds a crop filter positioned at x,y.
func (fb *FilterBuilder) Crop(width, height, x, y int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d:%d:%d", width, height, x, y))
	return fb
}

// FPS adds a frame-rate filter.
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%g", fps))
	return fb
}

// Custom appends a raw filter expression.
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	if filter == "" {
		return fb
	}
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build joins the chain with commas. An empty chain builds to "".
func (fb *FilterBuilder) Build() string {
	return strings.Join(fb.filters, ",")
}
