package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Adviser produces short training advice for one player attribute. The
// capability has two variants selected once at startup: a generative model
// when an API key is configured, static templates otherwise.
type Adviser interface {
	Advice(ctx context.Context, attribute string) (string, error)
}

// NewAdviser selects the adviser variant. A transient generator failure at
// call time still falls back to templates per call; this choice only decides
// whether the generator is tried at all.
func NewAdviser(geminiAPIKey string, timeout time.Duration) Adviser {
	if geminiAPIKey == "" {
		log.Info().Msg("no generative advice key configured, using template advice")
		return TemplateAdviser{}
	}
	log.Info().Msg("generative advice client initialized")
	return NewGeminiAdviser(geminiAPIKey, timeout)
}

// GeminiAdviser asks the Gemini REST API for coaching advice.
type GeminiAdviser struct {
	rest  *resty.Client
	key   string
	model string
}

// NewGeminiAdviser builds a Gemini-backed adviser.
func NewGeminiAdviser(apiKey string, timeout time.Duration) *GeminiAdviser {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	return &GeminiAdviser{
		rest:  r,
		key:   apiKey,
		model: "gemini-2.0-flash",
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Advice requests one concise piece of coaching advice for attribute.
func (g *GeminiAdviser) Advice(ctx context.Context, attribute string) (string, error) {
	prompt := fmt.Sprintf(
		"As a professional football coach, provide concise training advice (max 50 words) "+
			"to improve a player's %s. Focus on practical exercises and techniques.",
		strings.ReplaceAll(attribute, "_", " "))

	req := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}

	resp := &geminiResponse{}
	httpResp, err := g.rest.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.key).
		SetBody(req).
		SetResult(resp).
		SetError(resp).
		Post(fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", err
	}
	if httpResp.StatusCode() != 200 {
		return "", fmt.Errorf("gemini: status %d: %s", httpResp.StatusCode(), resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// TemplateAdviser serves the fixed per-attribute advice texts.
type TemplateAdviser struct{}

// Advice returns the static template for attribute. It never fails: unknown
// attributes get a generic practice sentence.
func (TemplateAdviser) Advice(_ context.Context, attribute string) (string, error) {
	return FallbackAdvice(attribute), nil
}

// FallbackAdvice returns the fixed training advice for an attribute.
func FallbackAdvice(attribute string) string {
	if advice, ok := adviceTemplates[attribute]; ok {
		return advice
	}
	return fmt.Sprintf("Practice %s regularly with focused, progressive drills.",
		strings.ReplaceAll(attribute, "_", " "))
}

var adviceTemplates = map[string]string{
	"crossing":            "Practice crosses from different positions with both feet. Work on accuracy and ball curve.",
	"finishing":           "Improve finishing with shooting drills under pressure. Work on angles and power.",
	"heading_accuracy":    "Develop heading technique with timing and positioning drills. Strengthen neck muscles.",
	"short_passing":       "Practice short, quick passing combinations. Work on accuracy and pass weight.",
	"volleys":             "Improve volleys with aerial control and striking drills. Work on balance.",
	"dribbling":           "Develop dribbling with slalom and one-on-one drills. Improve close control.",
	"curve":               "Practice curled strikes with wrapped-foot technique drills.",
	"free_kick_accuracy":  "Improve free kicks with repeated technical practice. Study wall placement.",
	"long_passing":        "Develop long passing with distance accuracy drills. Work on striking technique.",
	"ball_control":        "Improve control with receiving drills. Work on the first touch.",
	"acceleration":        "Develop acceleration with explosive drills. Work on quick starts.",
	"sprint_speed":        "Improve speed with running drills. Work on stride length and frequency.",
	"agility":             "Develop agility with change-of-direction drills. Improve coordination.",
	"reactions":           "Improve reflexes with reaction drills. Work on anticipation.",
	"balance":             "Develop balance with stability exercises. Strengthen the core.",
	"shot_power":          "Increase shot power with striking drills. Work on technique.",
	"jumping":             "Improve jumping with plyometric exercises. Strengthen the legs.",
	"stamina":             "Develop endurance with interval training. Improve overall conditioning.",
	"strength":            "Build physical power with strength training. Work on duels.",
	"long_shots":          "Practice shots from distance with accuracy drills.",
	"aggression":          "Channel aggression positively. Work on controlled commitment.",
	"interceptions":       "Improve interceptions with anticipation drills. Read the game.",
	"positioning":         "Develop positioning with tactical drills. Study placement.",
	"vision":              "Improve game vision with scanning drills. Keep checking the field.",
	"penalties":           "Practice penalties with concentration drills. Vary placement.",
	"marking":             "Improve marking with defensive drills. Work on concentration.",
	"standing_tackle":     "Develop standing tackles with technical drills. Work on timing.",
	"sliding_tackle":      "Practice sliding tackles carefully. Work on technique and safety.",
	"gk_diving":           "Improve diving with technical drills. Work on explosiveness.",
	"gk_handling":         "Develop handling with catching drills. Work on safety.",
	"gk_kicking":          "Improve distribution with accuracy drills. Work on kicking technique.",
	"gk_positioning":      "Develop goalkeeper positioning with angle drills. Study the geometry.",
	"gk_reflexes":         "Improve reflexes with rapid reaction drills. Work on explosiveness.",
	"potential":           "Develop your potential with regular, varied training. Set progressive goals.",
	"preferred_foot":      "Train the weak foot with dedicated drills. Develop two-footedness.",
	"attacking_work_rate": "Improve attacking commitment with endurance and anticipation work.",
	"defensive_work_rate": "Develop defensive commitment with concentration and positioning work.",
}
