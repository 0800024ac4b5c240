// Package intent resolves transcripts into structured intents. A fixed
// keyword table answers the common commands locally; everything else
// falls back to the remote NLU.
package intent

// Kind tags the intent variant. The action executor branches only on the
// kind, never on which resolution tier produced it.
type Kind string

const (
	KindNavigate Kind = "navigate"
	KindFetch    Kind = "fetch"
	KindStop     Kind = "stop"
	KindChat     Kind = "chat"
	KindUnknown  Kind = "unknown"
)

// Intent is the resolved command plus the text to speak back.
type Intent struct {
	Kind     Kind              `json:"kind"`
	Screen   string            `json:"screen,omitempty"` // Navigate target
	Action   string            `json:"action,omitempty"` // Fetch action name
	Params   map[string]string `json:"params,omitempty"`
	Response string            `json:"response"` // spoken feedback
}

// Fetch action names, the closed set of advisory calls.
const (
	ActionPriceForecast = "price_forecast"
	ActionBestMandi     = "best_mandi"
	ActionHarvestWindow = "harvest_window"
	ActionFullAdvisory  = "full_advisory"
	ActionWeather       = "weather"
)

// Context carries the ambient user parameters merged into fetch intents.
type Context struct {
	Crop     string `json:"crop"`
	District string `json:"district"`
}

// Map returns the context as params for the NLU and advisory calls.
func (c Context) Map() map[string]string {
	m := make(map[string]string, 2)
	if c.Crop != "" {
		m["crop"] = c.Crop
	}
	if c.District != "" {
		m["district"] = c.District
	}
	return m
}

// Merge overlays non-empty patch fields onto the context.
func (c Context) Merge(patch Context) Context {
	if patch.Crop != "" {
		c.Crop = patch.Crop
	}
	if patch.District != "" {
		c.District = patch.District
	}
	return c
}
