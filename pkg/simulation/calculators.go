package simulation

import "math"

const (
	// MinContrastRatio is the lowest contrast ratio that passes the visual check.
	MinContrastRatio = 4.5

	// SeatedReachLimitCM is the maximum reach distance for a seated posture.
	SeatedReachLimitCM = 60.0

	// StandingReachLimitCM is the maximum reach distance for any other posture.
	StandingReachLimitCM = 75.0

	// PostureSeated is the posture tag with the shorter reach envelope.
	PostureSeated = "seated"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// White and Black are the default foreground and background colors.
var (
	White = RGB{255, 255, 255}
	Black = RGB{0, 0, 0}
)

// channelLuminance linearizes one sRGB channel.
func channelLuminance(c uint8) float64 {
	x := float64(c) / 255.0
	if x <= 0.03928 {
		return x / 12.92
	}
	return math.Pow((x+0.055)/1.055, 2.4)
}

// RelativeLuminance returns the relative luminance of c in [0, 1].
func RelativeLuminance(c RGB) float64 {
	return 0.2126*channelLuminance(c.R) +
		0.7152*channelLuminance(c.G) +
		0.0722*channelLuminance(c.B)
}

// ContrastRatio returns the contrast ratio between two colors, from 1 (same
// luminance) to 21 (black on white). Argument order does not matter.
func ContrastRatio(fg, bg RGB) float64 {
	l1, l2 := RelativeLuminance(fg), RelativeLuminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

// VisualOK reports whether ratio meets MinContrastRatio.
func VisualOK(ratio float64) bool {
	return ratio >= MinContrastRatio
}

// ReachLimit returns the reach envelope for posture.
func ReachLimit(posture string) float64 {
	if posture == PostureSeated {
		return SeatedReachLimitCM
	}
	return StandingReachLimitCM
}

// ReachOK reports whether a control at distanceCM is inside the reach
// envelope for posture.
func ReachOK(distanceCM float64, posture string) bool {
	return distanceCM <= ReachLimit(posture)
}

// StrengthOK reports whether capability meets the required force.
func StrengthOK(requiredN, capabilityN float64) bool {
	return capabilityN >= requiredN
}
