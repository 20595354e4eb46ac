package updatestatus

import (
	"github.com/tasklane/automation/pkg/protocol"
)

type ActionFactory struct {
	issues protocol.IssueService
}

func NewActionFactory(issues protocol.IssueService) *ActionFactory {
	return &ActionFactory{issues: issues}
}

func (*ActionFactory) ID() string {
	return "update_status"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(f.issues, config)
}
