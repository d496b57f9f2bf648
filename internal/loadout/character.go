package loadout

import (
	"strconv"
	"strings"

	"github.com/loadout-tf/extension/internal/dispatcher"
	"github.com/loadout-tf/extension/internal/model"
	"github.com/loadout-tf/extension/internal/preset"
	"github.com/loadout-tf/extension/internal/registry"
)

// Eye indexes the killstreak eye glow pair.
type Eye int

const (
	EyeRight Eye = iota
	EyeLeft
)

var eyeAttachments = [2]string{eyeAttachmentRight, eyeAttachmentLeft}

// classRemovablePartsOff lists the body parts hidden by default until an
// item turns them back on.
var classRemovablePartsOff = []string{
	"heavy_hand_dex_bodygroup",
	"robotarm_bodygroup",
	"darts_bodygroup",
	"spyMask",
	"rocket",
	"medal_bodygroup",
	"demo_smiley",
}

// Taunt attack hooks that spawn a standalone particle effect.
var tauntAttackSystems = map[string]string{
	"TAUNTATK_ALLCLASS_GUITAR_RIFF": "bl_killtaunt",
	"TAUNTATK_MEDIC_HEROIC_TAUNT":   "god_rays",
}

// TemplateSource resolves schema templates, typically the registry.
type TemplateSource interface {
	Template(id string) (*registry.ItemTemplate, bool)
	Effect(typ registry.EffectType, id int) (*registry.EffectTemplate, bool)
}

// Emitter publishes loadout change events.
type Emitter interface {
	Emit(name string, payload any)
}

// Choreographer plays taunt choreography scenes. Play reports whether
// the scene could start; done runs when the scene finishes.
type Choreographer interface {
	Play(scene string, actor string, done func()) bool
	StopAll()
}

// Character is one dressed mercenary: its equipped items, particle
// effects, killstreak eyes and body state.
type Character struct {
	Class model.CharacterClass
	Name  string
	NPC   string

	templates TemplateSource
	events    Emitter
	choreo    Choreographer

	itemOrder []string
	items     map[string]*Item
	taunt     *Item
	retiring  []*Item

	effects     []*Effect
	tauntEffect *Effect

	killstreakEffects   [2]*Effect
	killstreakColor     model.KillstreakColor
	decapitationEffects [2]*Effect
	decapitationLevel   int

	team            model.Team
	visible         bool
	zombieSkin      bool
	invulnerable    bool
	ragdoll         Ragdoll
	flexControllers map[string]float64

	userAnim  string
	voicePose string
}

// NewCharacter builds an undressed character of the given class.
func NewCharacter(class model.CharacterClass, templates TemplateSource, events Emitter, choreo Choreographer) *Character {
	return &Character{
		Class:           class,
		Name:            class.Name(),
		NPC:             class.NPC(),
		templates:       templates,
		events:          events,
		choreo:          choreo,
		items:           map[string]*Item{},
		visible:         true,
		flexControllers: map[string]float64{},
	}
}

// Items returns the equipped items in equip order.
func (c *Character) Items() []*Item {
	out := make([]*Item, 0, len(c.itemOrder))
	for _, id := range c.itemOrder {
		out = append(out, c.items[id])
	}
	return out
}

// ItemByID returns the equipped item with the given template id.
func (c *Character) ItemByID(id string) (*Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// ToggleItem equips the template, or unequips it when already worn. It
// returns the item and whether it is now equipped.
func (c *Character) ToggleItem(template *registry.ItemTemplate) (*Item, bool) {
	if existing, ok := c.items[template.ID]; ok {
		c.removeItem(existing)
		return existing, false
	}
	return c.addItem(template), true
}

// AddItem equips the template, returning the already equipped item when
// worn.
func (c *Character) AddItem(template *registry.ItemTemplate) *Item {
	if existing, ok := c.items[template.ID]; ok {
		return existing
	}
	return c.addItem(template)
}

func (c *Character) addItem(template *registry.ItemTemplate) *Item {
	item := newItem(template, c)
	c.items[template.ID] = item
	c.itemOrder = append(c.itemOrder, template.ID)
	item.SetTeam(c.team)

	if item.IsTaunt() {
		if c.taunt != nil {
			c.deleteItem(c.taunt)
		}
		c.taunt = item

		if scene, ok := template.TauntScene(c.Name); ok && template.ItemSlot() == "taunt" && c.choreo != nil {
			c.choreo.StopAll()
			c.choreo.Play(scene, c.Name, nil)
		}
		if scene, ok := template.TauntPropScene(c.Name); ok && c.choreo != nil {
			c.choreo.Play(scene, template.Name(), nil)
		}
	}

	c.doTauntAttack(item.TauntAttackName())
	c.loadoutChanged()
	if c.events != nil {
		c.events.Emit(dispatcher.EventItemAdded, item)
	}
	return item
}

// RemoveItem unequips an item by template id.
func (c *Character) RemoveItem(id string) bool {
	item, ok := c.items[id]
	if !ok {
		return false
	}
	c.removeItem(item)
	return true
}

func (c *Character) removeItem(item *Item) {
	c.deleteItem(item)

	if item == c.taunt {
		c.taunt = nil
		if scene, ok := item.Template().TauntOutroScene(c.Name); ok && c.choreo != nil {
			// The item leaves the loadout now, but its model lives
			// until the outro finishes.
			c.choreo.StopAll()
			c.retiring = append(c.retiring, item)
			played := c.choreo.Play(scene, c.Name, func() {
				c.retire(item)
			})
			if propScene, ok := item.Template().TauntPropOutroScene(c.Name); ok {
				c.choreo.Play(propScene, item.Template().Name(), nil)
			}
			if !played {
				c.retire(item)
			}
		}
	}

	if c.events != nil {
		c.events.Emit(dispatcher.EventItemRemoved, item)
	}
	c.loadoutChanged()
}

func (c *Character) retire(item *Item) {
	for i, r := range c.retiring {
		if r == item {
			c.retiring = append(c.retiring[:i], c.retiring[i+1:]...)
			return
		}
	}
}

// RetiringItems returns unequipped taunts whose outro choreography is
// still playing, so renderers keep their models alive.
func (c *Character) RetiringItems() []*Item {
	return append([]*Item(nil), c.retiring...)
}

func (c *Character) deleteItem(item *Item) {
	delete(c.items, item.ID)
	for i, id := range c.itemOrder {
		if id == item.ID {
			c.itemOrder = append(c.itemOrder[:i], c.itemOrder[i+1:]...)
			break
		}
	}
}

func (c *Character) doTauntAttack(name string) {
	system, ok := tauntAttackSystems[name]
	if !ok {
		return
	}
	effect := NewEffect(nil)
	effect.System = system
	c.effects = append(c.effects, effect)
}

func (c *Character) loadoutChanged() {
	c.processSoul()
}

// processSoul scans for Voodoo-Cursed souls which force zombie skins.
func (c *Character) processSoul() {
	c.zombieSkin = false
	for _, id := range c.itemOrder {
		if strings.Contains(c.items[id].Template().Name(), "Voodoo-Cursed") {
			c.zombieSkin = true
		}
	}
}

// Team returns the current team.
func (c *Character) Team() model.Team {
	return c.team
}

// SetTeam switches the character and everything it wears to the team.
// Team colored particle systems swap their color token.
func (c *Character) SetTeam(team model.Team) {
	c.team = team
	for _, id := range c.itemOrder {
		c.items[id].SetTeam(team)
	}
	for _, effect := range c.allEffects() {
		effect.SetTeam(team)
	}
}

func (c *Character) allEffects() []*Effect {
	all := append([]*Effect(nil), c.effects...)
	for _, e := range c.killstreakEffects {
		if e != nil {
			all = append(all, e)
		}
	}
	for _, e := range c.decapitationEffects {
		if e != nil {
			all = append(all, e)
		}
	}
	if c.tauntEffect != nil {
		all = append(all, c.tauntEffect)
	}
	return all
}

// SkinIndex computes the character model skin from team, zombie state
// and invulnerability.
func (c *Character) SkinIndex() int {
	skin := int(c.team)
	if c.zombieSkin {
		if c.Class == model.ClassSpy || c.Class == model.ClassSpyBot {
			skin += 22
		} else {
			skin += 4
		}
	}
	if c.invulnerable {
		skin += 2
	}
	return skin
}

// MaterialOverride resolves the character wide material override.
func (c *Character) MaterialOverride() (string, bool) {
	switch c.ragdoll {
	case RagdollGold:
		return MaterialGoldRagdoll, true
	case RagdollIce:
		return MaterialIceRagdoll, true
	}
	return "", false
}

// IsInvulnerable reports the uber state.
func (c *Character) IsInvulnerable() bool {
	return c.invulnerable
}

// SetInvulnerable sets the uber state.
func (c *Character) SetInvulnerable(invulnerable bool) {
	c.invulnerable = invulnerable
}

// Ragdoll returns the ragdoll treatment.
func (c *Character) Ragdoll() Ragdoll {
	return c.ragdoll
}

// SetRagdoll sets the ragdoll treatment.
func (c *Character) SetRagdoll(ragdoll Ragdoll) {
	c.ragdoll = ragdoll
}

// IsZombie reports whether a Voodoo-Cursed soul is equipped.
func (c *Character) IsZombie() bool {
	return c.zombieSkin
}

// SetVisible toggles character visibility.
func (c *Character) SetVisible(visible bool) {
	c.visible = visible
}

// IsVisible reports character visibility.
func (c *Character) IsVisible() bool {
	return c.visible
}

// SetFlexControllerValue drives one facial flex controller.
func (c *Character) SetFlexControllerValue(name string, value float64) {
	c.flexControllers[name] = value
}

// ResetFlexes clears every flex controller.
func (c *Character) ResetFlexes() {
	c.flexControllers = map[string]float64{}
}

// FlexControllers returns the active flex controller values.
func (c *Character) FlexControllers() map[string]float64 {
	out := make(map[string]float64, len(c.flexControllers))
	for k, v := range c.flexControllers {
		out[k] = v
	}
	return out
}

// BodyGroups computes the body part state implied by the equipped
// items: parts hidden by default, named group overrides and indexed
// worldmodel overrides.
func (c *Character) BodyGroups() (hidden []string, named map[string]int, indexed map[int]int) {
	hidden = append(hidden, classRemovablePartsOff...)
	named = map[string]int{}
	indexed = map[int]int{}

	for _, id := range c.itemOrder {
		def := c.items[id].Template().Def
		for group, value := range def.PlayerBodygroups {
			if n, err := strconv.Atoi(value); err == nil {
				named[group] = n
			}
		}
		for group, value := range def.WmBodygroupOverride {
			g, err1 := strconv.Atoi(group)
			n, err2 := strconv.Atoi(value)
			if err1 == nil && err2 == nil {
				indexed[g] = n
			}
		}
	}
	return hidden, named, indexed
}

// SetPose sets the voice menu pose used for animation selection.
func (c *Character) SetPose(pose string) {
	c.voicePose = pose
}

// SetUserAnim forces a specific animation, "" returns to automatic
// selection.
func (c *Character) SetUserAnim(anim string) {
	c.userAnim = anim
}

// AnimationName selects the sequence to play from the forced animation,
// the voice pose and the equipped weapons' anim slots.
func (c *Character) AnimationName() string {
	if c.userAnim != "" {
		return c.userAnim
	}
	pose := c.voicePose
	if pose == "" {
		pose = "stand"
	}
	anim := pose + "_secondary"

	className := c.Name
	if className == "" {
		className = "scout"
	}

	for _, id := range c.itemOrder {
		template := c.items[id].Template()
		animSlot := template.Def.AnimSlot
		itemSlot := template.ItemSlotPerClass(className)

		if itemSlot != "action" && animSlot != "" && !strings.EqualFold(animSlot, "building") {
			switch {
			case animSlot[0] == '#':
				// Per-class composite sequences are not selectable here.
			case animSlot[0] == '!':
				anim = animSlot[1:]
			case strings.EqualFold(animSlot, "primary2"):
				anim = pose + "_primary"
			case !strings.EqualFold(animSlot, "force_not_used"):
				anim = pose + "_" + animSlot
			}
			continue
		}

		var slot string
		switch itemSlot {
		case "primary", "secondary", "melee", "pda":
			slot = itemSlot
		case "building":
			slot = "sapper"
		case "force_building":
			slot = "building"
		}
		if slot != "" {
			anim = pose + "_" + slot
		}
	}
	return anim
}

// AddEffect attaches a particle effect built from the template.
func (c *Character) AddEffect(template *registry.EffectTemplate) *Effect {
	effect := NewEffect(template)
	effect.SetTeam(c.team)
	c.effects = append(c.effects, effect)
	return effect
}

// RemoveEffect detaches a particle effect.
func (c *Character) RemoveEffect(effect *Effect) {
	for i, e := range c.effects {
		if e == effect {
			c.effects = append(c.effects[:i], c.effects[i+1:]...)
			return
		}
	}
}

// Effects returns the attached standalone effects.
func (c *Character) Effects() []*Effect {
	return append([]*Effect(nil), c.effects...)
}

// SetTauntEffect replaces the taunt unusual effect, nil removes it.
func (c *Character) SetTauntEffect(template *registry.EffectTemplate) *Effect {
	if template == nil {
		c.tauntEffect = nil
		return nil
	}
	effect := NewEffect(template)
	effect.SetTeam(c.team)
	c.tauntEffect = effect
	return effect
}

// TauntEffect returns the taunt unusual effect, or nil.
func (c *Character) TauntEffect() *Effect {
	return c.tauntEffect
}

// SetKillstreakEffect replaces the killstreak eye glow pair. A nil
// template clears both eyes.
func (c *Character) SetKillstreakEffect(template *registry.EffectTemplate, color model.KillstreakColor) [2]*Effect {
	c.killstreakColor = color
	return c.setEyeEffects(&c.killstreakEffects, template, EyeRight, color)
}

// KillstreakEffects returns the eye glow pair, entries may be nil.
func (c *Character) KillstreakEffects() [2]*Effect {
	return c.killstreakEffects
}

// KillstreakColor returns the eye glow color last applied.
func (c *Character) KillstreakColor() model.KillstreakColor {
	return c.killstreakColor
}

// setEyeEffects fills the eye pair. Demoman only has one working eye;
// demoEye names the one that still glows.
func (c *Character) setEyeEffects(pair *[2]*Effect, template *registry.EffectTemplate, demoEye Eye, color model.KillstreakColor) [2]*Effect {
	for i := range pair {
		pair[i] = nil

		if Eye(i) != demoEye && (c.Class == model.ClassDemoman || c.Class == model.ClassDemomanBot) {
			continue
		}
		if template == nil {
			continue
		}

		effect := NewEffect(template)
		effect.Attachment = eyeAttachments[i]
		effect.Color = color
		effect.SetTeam(c.team)
		pair[i] = effect
	}
	return *pair
}

// SetDecapitationLevel sets the Eyelander head count glow, 0 removes
// it.
func (c *Character) SetDecapitationLevel(level int) [2]*Effect {
	c.decapitationLevel = level
	var template *registry.EffectTemplate
	if level > 0 {
		template = &registry.EffectTemplate{
			ID:   20000,
			Type: registry.EffectKillstreakEyeglow,
			Def: registry.EffectDefinition{
				Name:   "Eye glow",
				System: "eye_powerup_green_lvl_" + strconv.Itoa(level),
			},
		}
	}
	return c.setEyeEffects(&c.decapitationEffects, template, EyeLeft, model.KillstreakNone)
}

// DecapitationLevel returns the Eyelander head count.
func (c *Character) DecapitationLevel() int {
	return c.decapitationLevel
}

// ConflictingItems returns the equipped items whose equip regions
// conflict with the given item.
func (c *Character) ConflictingItems(item *Item) []*Item {
	var out []*Item
	for _, id := range c.itemOrder {
		other := c.items[id]
		if other != item && item.IsConflicting(other) {
			out = append(out, other)
		}
	}
	return out
}

// RemoveAllItems unequips everything.
func (c *Character) RemoveAllItems() {
	for _, item := range c.Items() {
		c.removeItem(item)
	}
}

// RemoveAllEffects removes standalone, taunt and eye effects.
func (c *Character) RemoveAllEffects() {
	c.effects = nil
	c.SetKillstreakEffect(nil, model.KillstreakNone)
	c.SetTauntEffect(nil)
}

// RemoveAll resets the character to an undressed state.
func (c *Character) RemoveAll() {
	c.RemoveAllItems()
	c.RemoveAllEffects()
}

// SavePreset captures the current loadout under the given name.
func (c *Character) SavePreset(name string) *preset.Preset {
	p := preset.New(name)
	p.Character = c.Name
	p.DecapitationLevel = c.decapitationLevel

	for _, item := range c.Items() {
		pi := preset.Item{
			ID:                strings.TrimPrefix(item.ID, "w"),
			IsWorkshop:        item.Template().IsWorkshop(),
			IsTournamentMedal: item.Template().IsTournamentMedal(),
			WarpaintID:        item.WarpaintID(),
			WarpaintWear:      item.WarpaintWear(),
			WarpaintSeed:      item.WarpaintSeed(),
			WeaponEffect:      item.WeaponEffectID(),
			Sheen:             item.Sheen(),
			ShowFestivizer:    item.ShowFestivizer(),
		}
		if paint := item.Paint(); paint != nil {
			id := paint.ID
			pi.Paint = &id
		}
		if count := item.KillCount(); count != nil {
			pi.KillCount = *count
		}
		p.Items = append(p.Items, pi)
	}

	addEffect := func(effect *Effect) {
		if effect == nil || effect.Template == nil {
			return
		}
		pe := preset.Effect{
			ID:         effect.Template.ID,
			Type:       preset.KindForType(effect.Template.Type),
			Attachment: effect.Attachment,
		}
		if effect.Color != model.KillstreakNone {
			color := effect.Color
			pe.Color = &color
		}
		if effect.Offset != [3]float64{} {
			offset := effect.Offset
			pe.Offset = &offset
		}
		p.Effects = append(p.Effects, pe)
	}

	for _, effect := range c.effects {
		addEffect(effect)
	}
	addEffect(c.tauntEffect)
	for _, effect := range c.killstreakEffects {
		if effect != nil {
			// One serialized entry restores both eyes.
			addEffect(effect)
			break
		}
	}
	return p
}

// LoadPreset replaces the loadout with the preset contents. Items whose
// templates are unknown are skipped.
func (c *Character) LoadPreset(p *preset.Preset) {
	c.RemoveAll()

	for _, pi := range p.Items {
		c.loadPresetItem(pi)
	}

	c.SetDecapitationLevel(p.DecapitationLevel)

	for _, pe := range p.Effects {
		template, ok := c.templates.Effect(pe.Type.RegistryType(), pe.ID)
		if !ok {
			continue
		}
		switch pe.Type {
		case preset.EffectUnusual:
			c.AddEffect(template)
		case preset.EffectKillstreak:
			color := model.KillstreakNone
			if pe.Color != nil {
				color = *pe.Color
			}
			c.SetKillstreakEffect(template, color)
		case preset.EffectTaunt:
			c.SetTauntEffect(template)
		}
	}
}

func (c *Character) loadPresetItem(pi preset.Item) {
	id := pi.ID
	if pi.IsWorkshop {
		id = "w" + id
	}
	template, ok := c.templates.Template(id)
	if !ok {
		return
	}

	item := c.addItem(template)
	item.SetWarpaintID(pi.WarpaintID)
	item.SetWarpaintWear(pi.WarpaintWear)
	item.SetWarpaintSeed(pi.WarpaintSeed)
	if pi.Paint != nil {
		item.SetPaint(*pi.Paint)
	}
	item.SetWeaponEffectID(pi.WeaponEffect)
	item.SetShowFestivizer(pi.ShowFestivizer)
	if pi.KillCount != 0 {
		count := pi.KillCount
		item.SetKillCount(&count)
	}
	item.SetSheen(pi.Sheen)
}

// Copy re-dresses the character from another one.
func (c *Character) Copy(other *Character) {
	c.RemoveAll()

	for _, copied := range other.Items() {
		item := c.AddItem(copied.Template())
		item.SetKillCount(copied.KillCount())
		item.SetShowFestivizer(copied.ShowFestivizer())
		item.SetCustomTexture(copied.CustomTexture())
		item.SetCritBoost(copied.IsCritBoosted())
		if paint := copied.Paint(); paint != nil {
			item.SetPaint(paint.ID)
		}
		item.SetSheen(copied.Sheen())
		item.SetWeaponEffectID(copied.WeaponEffectID())
		if size := copied.TextureSize(); size > 0 {
			item.SetTextureSize(size)
		}
		if id := copied.WarpaintID(); id != nil {
			item.SetWarpaint(*id, copied.WarpaintWear(), copied.WarpaintSeed())
		}
	}

	for _, effect := range other.effects {
		if effect.Template != nil {
			c.AddEffect(effect.Template)
		}
	}
	if taunt := other.TauntEffect(); taunt != nil {
		c.SetTauntEffect(taunt.Template)
	}
	for _, effect := range other.KillstreakEffects() {
		if effect != nil {
			c.SetKillstreakEffect(effect.Template, effect.Color)
			break
		}
	}
	if other.DecapitationLevel() > 0 {
		c.SetDecapitationLevel(other.DecapitationLevel())
	}
}
