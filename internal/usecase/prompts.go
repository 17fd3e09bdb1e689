package usecase

import (
	"bytes"
	"encoding/json"
	"text/template"
)

const plannerSystemPrompt = "You are an expert travel planner. Be concrete, realistic and concise. When asked for JSON, answer with JSON only."

var interpretTemplate = template.Must(template.New("interpret").Parse(`A traveller described the trip they want:

"{{.Request}}"
{{if .Conversation}}
Earlier conversation:
{{.Conversation}}
{{end}}
Write 2 to 4 web search queries that would surface good candidate destinations for this trip, and list the hard constraints you can infer (season, budget, pace, interests, who is travelling).

Respond with JSON only:
{"queries": ["..."], "constraints": ["..."]}`))

var synthesizeTemplate = template.Must(template.New("synthesize").Parse(`Trip request: "{{.Request}}"
{{if .Constraints}}
Constraints:
{{range .Constraints}}- {{.}}
{{end}}{{end}}
Search findings:
{{range .Results}}- {{.Title}} ({{.URL}}): {{.Snippet}}
{{end}}{{if .Pages}}
Page extracts:
{{range .Pages}}### {{.Title}} ({{.URL}})
{{.Content}}
{{end}}{{end}}{{if .Current}}
Destinations proposed so far: {{.Current}}
{{end}}{{if .Refinement}}
The traveller asked to adjust the proposal: "{{.Refinement}}"
{{end}}
Propose 3 to 6 destinations that fit the request. Use real places only.

Respond with JSON only:
{"destinations": [{"name": "...", "country": "...", "region": "...", "key_sites": ["..."], "rationale": "...", "estimated_days": 3, "logistics": "..."}], "summary": "two or three sentences for the traveller"}`))

var optionsTemplate = template.Must(template.New("options").Parse(`Build priced trip options for these confirmed destinations, in this order:
{{range .Stays}}- {{.Destination.Name}}, {{.Destination.Country}}: {{.Nights}} nights from {{.CheckIn}}
{{end}}
Travellers: {{.Preferences.Adults}} adults, {{.Preferences.Children}} children. Luxury: {{.Preferences.LuxuryLevel}}. Activity: {{.Preferences.ActivityLevel}}.{{if .Preferences.BudgetUSD}} Budget: {{.Preferences.BudgetUSD}} USD.{{end}}
Departure airport: {{.Origin}}. Depart {{.DepartDate}}, return {{.ReturnDate}}.

Partner offers (prefer these; when a category is empty, use realistic placeholder prices):
Flights: {{.Flights}}
Hotels: {{.Hotels}}
Tours: {{.Tours}}

Create 2 to 4 options with different price points. Every hotel and tour must be in one of the confirmed destinations; do not add other places. Prices are totals for the whole party in USD.

Respond with a JSON array only:
[{"title": "...", "flights": {"outbound": {"airline": "...", "flight_number": "...", "from": "...", "to": "...", "depart_at": "...", "arrive_at": "..."}, "return": {"airline": "...", "flight_number": "...", "from": "...", "to": "...", "depart_at": "...", "arrive_at": "..."}, "price_usd": 0}, "hotels": [{"city": "...", "name": "...", "rating": 4.5, "nights": 3, "nightly_cost_usd": 0}], "tours": [{"city": "...", "name": "...", "duration_hours": 3, "cost_usd": 0}], "highlights": ["..."]}]`))

var itineraryTemplate = template.Must(template.New("itinerary").Parse(`Write a day-by-day itinerary for this trip option, starting {{.StartDate}} for {{.Days}} days.

Option:
{{.Option}}

Traveller preferences: activity level {{.Preferences.ActivityLevel}}, luxury level {{.Preferences.LuxuryLevel}}.
Place every booked tour on a day in its city and account for travel days between cities.

Respond with a JSON array only:
[{"day": 1, "city": "...", "title": "...", "activities": ["..."], "notes": "..."}]`))

var questionTemplate = template.Must(template.New("question").Parse(`You are helping a traveller plan a trip. Current phase: {{.Phase}}.
Original request: "{{.Request}}"
{{if .Destinations}}Destinations under discussion: {{.Destinations}}
{{end}}{{if .Summary}}Research summary: {{.Summary}}
{{end}}
Traveller: "{{.Question}}"

Answer briefly and helpfully in plain text. If they seem ready, remind them they can confirm the destinations.`))

func renderPrompt(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func compactJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
