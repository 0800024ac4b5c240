package intent

import "strings"

// tableEntry maps keywords to a canned intent. The first entry whose
// keyword appears in the transcript wins, so ordering encodes priority:
// stop first (it must beat everything), then the navigation and fetch
// commands from most to least specific.
type tableEntry struct {
	keywords   []string
	intent     Intent
	responseEN string
	responseHI string
}

var localTable = []tableEntry{
	{
		keywords:   []string{"stop", "cancel", "quiet", "बंद", "स्टॉप", "रुको", "चुप"},
		intent:     Intent{Kind: KindStop},
		responseEN: "Okay, stopping.",
		responseHI: "ठीक है, रोक रही हूँ।",
	},
	{
		keywords:   []string{"mandi price", "market price", "show mandi", "mandi prices", "market rates", "मंडी भाव", "बाजार भाव", "मंडी का रेट"},
		intent:     Intent{Kind: KindNavigate, Screen: "Market"},
		responseEN: "Opening mandi prices for you.",
		responseHI: "मंडी भाव खोल रही हूँ।",
	},
	{
		keywords:   []string{"best mandi", "which mandi", "where to sell", "sell my", "कहाँ बेचूं", "कौन सी मंडी", "कहां बेचें"},
		intent:     Intent{Kind: KindFetch, Action: ActionBestMandi},
		responseEN: "Let me find the best mandi for you.",
		responseHI: "सबसे अच्छी मंडी देख रही हूँ।",
	},
	{
		keywords:   []string{"price forecast", "future price", "price next", "कीमत का अनुमान", "आगे भाव", "भविष्य में दाम"},
		intent:     Intent{Kind: KindFetch, Action: ActionPriceForecast},
		responseEN: "Checking the price forecast.",
		responseHI: "कीमत का अनुमान देख रही हूँ।",
	},
	{
		keywords:   []string{"harvest", "when should i cut", "cutting time", "कटाई", "फसल काट"},
		intent:     Intent{Kind: KindFetch, Action: ActionHarvestWindow},
		responseEN: "Checking the best harvest window.",
		responseHI: "कटाई का सही समय देख रही हूँ।",
	},
	{
		keywords:   []string{"weather", "rain", "forecast today", "मौसम", "बारिश"},
		intent:     Intent{Kind: KindFetch, Action: ActionWeather},
		responseEN: "Fetching the weather for you.",
		responseHI: "मौसम की जानकारी ला रही हूँ।",
	},
	{
		keywords:   []string{"advisory", "full advice", "what should i do", "सलाह", "क्या करूं", "पूरी जानकारी"},
		intent:     Intent{Kind: KindFetch, Action: ActionFullAdvisory},
		responseEN: "Preparing your full advisory.",
		responseHI: "आपकी पूरी सलाह तैयार कर रही हूँ।",
	},
	{
		keywords:   []string{"home screen", "go home", "main screen", "होम", "मुख्य स्क्रीन"},
		intent:     Intent{Kind: KindNavigate, Screen: "Home"},
		responseEN: "Taking you home.",
		responseHI: "होम स्क्रीन खोल रही हूँ।",
	},
	{
		keywords:   []string{"my profile", "profile", "settings", "प्रोफाइल", "सेटिंग"},
		intent:     Intent{Kind: KindNavigate, Screen: "Profile"},
		responseEN: "Opening your profile.",
		responseHI: "आपकी प्रोफाइल खोल रही हूँ।",
	},
	{
		keywords:   []string{"hello", "hi there", "namaste", "नमस्ते", "हेलो"},
		intent:     Intent{Kind: KindChat},
		responseEN: "Hello! Ask me about prices, weather or your crop.",
		responseHI: "नमस्ते! मुझसे भाव, मौसम या अपनी फसल के बारे में पूछिए।",
	},
}

// lookupLocal scans the table in order and returns the first match. The
// match is a case-insensitive substring test of each keyword against the
// transcript.
func lookupLocal(transcript, locale string) (Intent, bool) {
	lower := strings.ToLower(transcript)
	for _, entry := range localTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				it := entry.intent
				it.Response = entry.responseEN
				if strings.HasPrefix(locale, "hi") {
					it.Response = entry.responseHI
				}
				return it, true
			}
		}
	}
	return Intent{}, false
}
