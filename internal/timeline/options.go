package timeline

import "time"

// Options holds every tunable of the viewport engine.
type Options struct {
	// Floor is the absolute oldest instant the bounds always include.
	Floor time.Time

	// MaxZoom is the deepest zoom allowed (smallest meaningful window).
	MaxZoom float64
	// WheelScale and WheelSensitivity multiply the wheel deltaY before it is
	// exponentiated: newZoom = zoom * exp(deltaY * WheelScale * WheelSensitivity).
	WheelScale       float64
	WheelSensitivity float64
	// CenterWeight blends the zoom anchor from the cursor (0) to the window
	// center (1). The anchored data point is the one under the blended
	// position, and it stays there through the zoom; at 1 the center is fixed.
	CenterWeight float64

	Sizing  SizingOptions
	Overlap OverlapOptions

	// HoverThreshold is the largest display-percent distance that still counts as a hover.
	HoverThreshold float64
}

// SizingOptions drive marker size and opacity.
type SizingOptions struct {
	MinSize        float64 // px, used at or above MaxWindowHours
	MaxSize        float64 // px, used at or below MinWindowHours
	MinWindowHours float64
	MaxWindowHours float64
	MaxSizeBoost   float64 // px added for the top visible score
	SizeExponent   float64
	OpacityMin     float64
	OpacityMax     float64
	OpacityExp     float64
	NeutralScore   float64 // normalized score used when all visible scores are equal
}

// OverlapOptions drive the marker overlap resolver.
type OverlapOptions struct {
	// AlwaysShowZoom disables suppression at or above this zoom.
	AlwaysShowZoom float64
	MaxMarkers     int
	// OverlapRatio scales the combined radii below which two markers collide.
	OverlapRatio float64
	// ScoreProximity is the relative score gap above which a colliding
	// candidate is dropped. Candidates within it are kept alongside their neighbour.
	ScoreProximity float64
	// ReferenceWidth is the rendered width in px assumed when the caller
	// cannot supply one.
	ReferenceWidth float64
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Floor:            DefaultFloor,
		MaxZoom:          10000,
		WheelScale:       -0.1,
		WheelSensitivity: 0.1,
		CenterWeight:     0,
		Sizing: SizingOptions{
			MinSize:        8,
			MaxSize:        20,
			MinWindowHours: 1,
			MaxWindowHours: 5 * 365 * 24,
			MaxSizeBoost:   12,
			SizeExponent:   2,
			OpacityMin:     0.35,
			OpacityMax:     1,
			OpacityExp:     1.5,
			NeutralScore:   0.5,
		},
		Overlap: OverlapOptions{
			AlwaysShowZoom: 500,
			MaxMarkers:     50,
			OverlapRatio:   0.8,
			ScoreProximity: 0.15,
			ReferenceWidth: 1000,
		},
		HoverThreshold: 3,
	}
}
