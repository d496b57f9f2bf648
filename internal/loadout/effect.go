// Package loadout models the customization state of dressed characters:
// equipped items, particle effects, killstreak eyes and the per-class
// preset lifecycle.
package loadout

import (
	"strings"

	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/registry"
)

// Team color tokens embedded in particle system names.
const (
	effectsRed = "teamcolor_red"
	effectsBlu = "teamcolor_blue"
)

// Attachment points used for effect placement.
const (
	attachmentHead = "bip_head"

	eyeAttachmentRight = "eyeglow_R"
	eyeAttachmentLeft  = "eyeglow_L"
)

// Effect is a live particle effect attached to a character.
type Effect struct {
	Template   *registry.EffectTemplate
	System     string
	Attachment string
	Offset     [3]float64
	Color      model.KillstreakColor
}

// NewEffect instantiates an effect from its schema template. The
// attachment follows the effect category.
func NewEffect(template *registry.EffectTemplate) *Effect {
	e := &Effect{Template: template}
	if template != nil {
		e.System = template.System("")
		if template.Type == registry.EffectCosmeticUnusual {
			e.Attachment = attachmentHead
		}
	}
	return e
}

// SetTeam swaps the team color token in the system name. It reports
// whether the system changed and needs recreating.
func (e *Effect) SetTeam(team model.Team) bool {
	from, to := effectsBlu, effectsRed
	if team == model.TeamBlu {
		from, to = effectsRed, effectsBlu
	}
	if !strings.Contains(e.System, from) {
		return false
	}
	e.System = strings.ReplaceAll(e.System, from, to)
	return true
}

// ControlPointTint returns the eye glow tint driven into control point
// nine for killstreak effects, or false when the effect is not colored.
func (e *Effect) ControlPointTint(team model.Team) (model.Tint, bool) {
	if e.Color == model.KillstreakNone {
		return model.Tint{}, false
	}
	def, ok := model.GetKillstreak(e.Color)
	if !ok {
		return model.Tint{}, false
	}
	return def.Color1(team), true
}
