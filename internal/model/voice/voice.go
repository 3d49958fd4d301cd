package voice

// Voice describes one synthesizer voice from the TTS catalog.
type Voice struct {
	ID     string `json:"voiceId"`
	Name   string `json:"displayName"`
	Locale string `json:"locale"`
	Gender string `json:"gender,omitempty"`
}

// Seed returns the default voice catalog used until the live catalog has been
// fetched from the TTS provider.
func Seed() []Voice {
	return []Voice{
		{ID: "en-US-natalie", Name: "Natalie", Locale: "en-US", Gender: "Female"},
		{ID: "en-US-terrell", Name: "Terrell", Locale: "en-US", Gender: "Male"},
		{ID: "en-UK-hazel", Name: "Hazel", Locale: "en-UK", Gender: "Female"},
	}
}
