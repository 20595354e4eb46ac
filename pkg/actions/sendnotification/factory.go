package sendnotification

import (
	"github.com/tasklane/automation/pkg/eventbus"
	"github.com/tasklane/automation/pkg/protocol"
)

type ActionFactory struct {
	bus eventbus.EventBus
}

func NewActionFactory(bus eventbus.EventBus) *ActionFactory {
	return &ActionFactory{bus: bus}
}

func (*ActionFactory) ID() string {
	return "send_notification"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.bus, config)
}
