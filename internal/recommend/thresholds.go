package recommend

// Threshold is the static per-attribute bar below which a training
// recommendation is emitted, plus the badge image shown next to it.
type Threshold struct {
	Limit float64
	Image string
}

// thresholds mirrors the curated attribute_thresholds table the service
// ships with. Attributes absent from this table never produce a
// recommendation.
var thresholds = map[string]Threshold{
	"potential":           {Limit: 75, Image: "/images/attributes/potential.png"},
	"crossing":            {Limit: 60, Image: "/images/attributes/crossing.png"},
	"finishing":           {Limit: 70, Image: "/images/attributes/finishing.png"},
	"heading_accuracy":    {Limit: 60, Image: "/images/attributes/heading_accuracy.png"},
	"short_passing":       {Limit: 70, Image: "/images/attributes/short_passing.png"},
	"volleys":             {Limit: 55, Image: "/images/attributes/volleys.png"},
	"dribbling":           {Limit: 65, Image: "/images/attributes/dribbling.png"},
	"curve":               {Limit: 55, Image: "/images/attributes/curve.png"},
	"free_kick_accuracy":  {Limit: 55, Image: "/images/attributes/free_kick_accuracy.png"},
	"long_passing":        {Limit: 60, Image: "/images/attributes/long_passing.png"},
	"ball_control":        {Limit: 70, Image: "/images/attributes/ball_control.png"},
	"acceleration":        {Limit: 65, Image: "/images/attributes/acceleration.png"},
	"sprint_speed":        {Limit: 65, Image: "/images/attributes/sprint_speed.png"},
	"agility":             {Limit: 65, Image: "/images/attributes/agility.png"},
	"reactions":           {Limit: 70, Image: "/images/attributes/reactions.png"},
	"balance":             {Limit: 60, Image: "/images/attributes/balance.png"},
	"shot_power":          {Limit: 65, Image: "/images/attributes/shot_power.png"},
	"jumping":             {Limit: 60, Image: "/images/attributes/jumping.png"},
	"stamina":             {Limit: 70, Image: "/images/attributes/stamina.png"},
	"strength":            {Limit: 65, Image: "/images/attributes/strength.png"},
	"long_shots":          {Limit: 60, Image: "/images/attributes/long_shots.png"},
	"aggression":          {Limit: 55, Image: "/images/attributes/aggression.png"},
	"interceptions":       {Limit: 60, Image: "/images/attributes/interceptions.png"},
	"positioning":         {Limit: 65, Image: "/images/attributes/positioning.png"},
	"vision":              {Limit: 65, Image: "/images/attributes/vision.png"},
	"penalties":           {Limit: 55, Image: "/images/attributes/penalties.png"},
	"marking":             {Limit: 55, Image: "/images/attributes/marking.png"},
	"standing_tackle":     {Limit: 55, Image: "/images/attributes/standing_tackle.png"},
	"sliding_tackle":      {Limit: 50, Image: "/images/attributes/sliding_tackle.png"},
	"gk_diving":           {Limit: 50, Image: "/images/attributes/gk_diving.png"},
	"gk_handling":         {Limit: 50, Image: "/images/attributes/gk_handling.png"},
	"gk_kicking":          {Limit: 50, Image: "/images/attributes/gk_kicking.png"},
	"gk_positioning":      {Limit: 50, Image: "/images/attributes/gk_positioning.png"},
	"gk_reflexes":         {Limit: 50, Image: "/images/attributes/gk_reflexes.png"},
}

// Thresholds returns a copy of the static threshold table.
func Thresholds() map[string]Threshold {
	out := make(map[string]Threshold, len(thresholds))
	for k, v := range thresholds {
		out[k] = v
	}
	return out
}
