package screen

// Key is a key the screen reacts to.
type Key int

const (
	KeyReset Key = iota
	KeyYes
	KeyNo
	KeySave
)

// Action is what a key press asks the screen to do.
type Action int

const (
	ActionNone Action = iota
	ActionAsk
	ActionReset
	ActionCancel
	ActionSave
)

// prompt guards reset behind a yes/no question.
type prompt struct {
	asking bool
}

func (p *prompt) press(k Key) Action {
	switch k {
	case KeyReset:
		if p.asking {
			return ActionNone
		}
		p.asking = true
		return ActionAsk
	case KeyYes:
		if !p.asking {
			return ActionNone
		}
		p.asking = false
		return ActionReset
	case KeyNo:
		if !p.asking {
			return ActionNone
		}
		p.asking = false
		return ActionCancel
	case KeySave:
		if p.asking {
			return ActionNone
		}
		return ActionSave
	}
	return ActionNone
}
