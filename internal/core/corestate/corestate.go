package corestate

type Stage string

const (
	StageNotReady Stage = "init"
	StagePreInit  Stage = "pre-init"
	StagePostInit Stage = "post-init"
	StageReady    Stage = "event"
)

const (
	StringsNone string = "none"
)

func NewCorestate(o *CoreState) *CoreState {
	if o.Stage == "" {
		o.Stage = StageNotReady
	}
	if o.NodeUUID == "" {
		o.NodeUUID = StringsNone
	}
	return o
}
