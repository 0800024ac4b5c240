package actions

import (
	"fmt"
	"strings"

	"github.com/kisanmitra/ariavoice/internal/advisory"
	"github.com/kisanmitra/ariavoice/internal/intent"
)

// composeSummary builds the spoken sentence from the response shape.
// Every field read is optional; a response missing the fields a summary
// needs yields "" and the caller falls back to the canned text.
func (e *Executor) composeSummary(action string, params map[string]string, result advisory.Result) string {
	hi := strings.HasPrefix(e.locale, "hi")
	crop := params["crop"]

	switch action {
	case intent.ActionPriceForecast:
		price, ok := result.Number("expected_price")
		if !ok {
			price, ok = result.Number("price")
		}
		if !ok {
			return ""
		}
		trend := result.String("trend")
		if hi {
			s := fmt.Sprintf("%s का अनुमानित भाव %.0f रुपये प्रति क्विंटल है।", crop, price)
			if trend == "up" {
				s += " भाव बढ़ने की उम्मीद है।"
			} else if trend == "down" {
				s += " भाव गिर सकते हैं।"
			}
			return s
		}
		s := fmt.Sprintf("The expected price for %s is %.0f rupees per quintal.", crop, price)
		if trend == "up" {
			s += " Prices are expected to rise."
		} else if trend == "down" {
			s += " Prices may fall."
		}
		return s

	case intent.ActionBestMandi:
		name := result.String("mandi")
		if name == "" {
			name = result.String("name")
		}
		if name == "" {
			return ""
		}
		price, hasPrice := result.Number("price")
		if hi {
			if hasPrice {
				return fmt.Sprintf("अभी %s मंडी सबसे अच्छी है, भाव %.0f रुपये प्रति क्विंटल।", name, price)
			}
			return fmt.Sprintf("अभी %s मंडी में बेचना सबसे अच्छा रहेगा।", name)
		}
		if hasPrice {
			return fmt.Sprintf("%s mandi looks best right now, at %.0f rupees per quintal.", name, price)
		}
		return fmt.Sprintf("Selling at %s mandi looks best right now.", name)

	case intent.ActionHarvestWindow:
		from := result.String("start_date")
		to := result.String("end_date")
		if from == "" || to == "" {
			return ""
		}
		if hi {
			return fmt.Sprintf("%s की कटाई के लिए %s से %s का समय सबसे अच्छा है।", crop, from, to)
		}
		return fmt.Sprintf("The best harvest window for %s is from %s to %s.", crop, from, to)

	case intent.ActionWeather:
		desc := result.String("summary")
		if desc == "" {
			desc = result.String("description")
		}
		temp, hasTemp := result.Number("temperature")
		if desc == "" && !hasTemp {
			return ""
		}
		if hi {
			s := "मौसम: " + desc
			if hasTemp {
				s += fmt.Sprintf(" तापमान %.0f डिग्री।", temp)
			}
			return strings.TrimSpace(s)
		}
		s := "Weather: " + desc
		if hasTemp {
			s += fmt.Sprintf(" Temperature %.0f degrees.", temp)
		}
		return strings.TrimSpace(s)

	case intent.ActionFullAdvisory:
		// The advisory endpoint composes its own message; prefer it.
		if msg := result.String("summary"); msg != "" {
			return msg
		}
		var parts []string
		if rec := result.String("recommendation"); rec != "" {
			parts = append(parts, rec)
		}
		if w := result.Nested("harvest"); w != nil {
			if from, to := w.String("start_date"), w.String("end_date"); from != "" && to != "" {
				if hi {
					parts = append(parts, fmt.Sprintf("कटाई %s से %s के बीच करें।", from, to))
				} else {
					parts = append(parts, fmt.Sprintf("Harvest between %s and %s.", from, to))
				}
			}
		}
		if m := result.Nested("best_mandi"); m != nil {
			if name := m.String("mandi"); name != "" {
				if hi {
					parts = append(parts, fmt.Sprintf("बेचने के लिए %s मंडी चुनें।", name))
				} else {
					parts = append(parts, fmt.Sprintf("Sell at %s mandi.", name))
				}
			}
		}
		return strings.Join(parts, " ")
	}

	return ""
}
