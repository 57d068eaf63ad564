package normalize

import "pipeline-dashboard-go/internal/models"

// PositionView is a position joined with its owning pipeline.
type PositionView struct {
	models.Position
	Label        string     `json:"label"`
	Color        ColorClass `json:"color"`
	PipelineName string     `json:"pipelineName,omitempty"`
}

// ViewPosition labels pos and joins the owning pipeline when known.
func ViewPosition(pos models.Position, pipeline *models.Pipeline) PositionView {
	v := PositionView{Position: pos}
	switch pos.Position {
	case 1:
		v.Label, v.Color = "LONG", Gain
	case -1:
		v.Label, v.Color = "SHORT", Loss
	default:
		v.Label, v.Color = "NEUTRAL", Neutral
	}
	if pipeline != nil {
		v.PipelineName = pipeline.Name
		if v.Symbol == "" {
			v.Symbol = pipeline.Symbol
		}
	}
	return v
}
