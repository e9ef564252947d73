package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Recognized scenario keys.
const (
	KeyDistance       = "distance_to_control_cm"
	KeyPosture        = "posture"
	KeyRequiredForce  = "required_force_N"
	KeyCapability     = "capability_N"
	KeyForeground     = "fg_rgb"
	KeyBackground     = "bg_rgb"
	KeyButtonWidthMM  = "button_w_mm"
	KeyButtonHeightMM = "button_h_mm"
)

// Defaults applied when a scenario omits a recognized key.
const (
	DefaultDistanceCM     = 55.0
	DefaultPosture        = PostureSeated
	DefaultRequiredForceN = 20.0
	DefaultCapabilityN    = 25.0
	DefaultButtonMM       = 10.0
)

// ErrInvalidScenario is returned when a recognized scenario key holds a
// value of the wrong shape.
var ErrInvalidScenario = errors.New("invalid scenario config")

// ScenarioConfig is a free-form key/value bag describing a simulated usage
// scenario. It wraps the raw JSON object and is immutable.
type ScenarioConfig struct {
	raw string
}

// ParseScenarioConfig wraps raw, which must be a JSON object. Empty input
// yields an empty config.
func ParseScenarioConfig(raw []byte) (ScenarioConfig, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ScenarioConfig{raw: "{}"}, nil
	}
	if !gjson.Valid(trimmed) {
		return ScenarioConfig{}, fmt.Errorf("%w: malformed JSON", ErrInvalidScenario)
	}
	if !gjson.Parse(trimmed).IsObject() {
		return ScenarioConfig{}, fmt.Errorf("%w: config must be a JSON object", ErrInvalidScenario)
	}
	return ScenarioConfig{raw: trimmed}, nil
}

// ScenarioConfigFromMap builds a config from decoded key/value pairs.
func ScenarioConfigFromMap(m map[string]any) (ScenarioConfig, error) {
	if m == nil {
		return ScenarioConfig{raw: "{}"}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return ScenarioConfig{raw: string(b)}, nil
}

// Raw returns the JSON object backing the config.
func (c ScenarioConfig) Raw() json.RawMessage {
	if c.raw == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(c.raw)
}

// MarshalJSON implements json.Marshaler.
func (c ScenarioConfig) MarshalJSON() ([]byte, error) {
	return c.Raw(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ScenarioConfig) UnmarshalJSON(data []byte) error {
	parsed, err := ParseScenarioConfig(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ScenarioConfig) get(key string) gjson.Result {
	if c.raw == "" {
		return gjson.Result{}
	}
	return gjson.Get(c.raw, escapeKey(key))
}

// Has reports whether key is present and not null.
func (c ScenarioConfig) Has(key string) bool {
	r := c.get(key)
	return r.Exists() && r.Type != gjson.Null
}

// Float returns the numeric value of key, or def when it is absent.
// Booleans count as 0/1 and numeric strings are parsed.
func (c ScenarioConfig) Float(key string, def float64) (float64, error) {
	r := c.get(key)
	switch r.Type {
	case gjson.Null:
		return def, nil
	case gjson.Number:
		return r.Num, nil
	case gjson.True:
		return 1, nil
	case gjson.False:
		return 0, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be numeric, got %q", ErrInvalidScenario, key, r.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s must be numeric", ErrInvalidScenario, key)
	}
}

// String returns the value of key as text, or def when it is absent.
func (c ScenarioConfig) String(key, def string) string {
	r := c.get(key)
	if r.Type == gjson.Null {
		return def
	}
	return r.String()
}

// RGB returns the color stored at key as a [r, g, b] array, or def when it
// is absent. Channels are clamped to 0..255 and rounded.
func (c ScenarioConfig) RGB(key string, def RGB) (RGB, error) {
	r := c.get(key)
	if r.Type == gjson.Null {
		return def, nil
	}
	if !r.IsArray() {
		return RGB{}, fmt.Errorf("%w: %s must be an [r, g, b] array", ErrInvalidScenario, key)
	}
	channels := r.Array()
	if len(channels) != 3 {
		return RGB{}, fmt.Errorf("%w: %s must have 3 channels, got %d", ErrInvalidScenario, key, len(channels))
	}
	var out [3]uint8
	for i, ch := range channels {
		if ch.Type != gjson.Number {
			return RGB{}, fmt.Errorf("%w: %s channel %d is not a number", ErrInvalidScenario, key, i)
		}
		out[i] = clampChannel(ch.Num)
	}
	return RGB{R: out[0], G: out[1], B: out[2]}, nil
}

// Scalar returns the value of key when it is a number or boolean.
func (c ScenarioConfig) Scalar(key string) (any, bool) {
	r := c.get(key)
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	default:
		return nil, false
	}
}

// Keys returns the top-level keys in document order.
func (c ScenarioConfig) Keys() []string {
	var keys []string
	gjson.Parse(string(c.Raw())).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func clampChannel(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}

// escapeKey makes key safe to use as a single gjson path component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
