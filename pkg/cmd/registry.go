// Package cmd provides common initialization for the command-line entrypoint.
package cmd

import (
	"log/slog"

	"github.com/tasklane/automation/pkg/actions/assignuser"
	"github.com/tasklane/automation/pkg/actions/createissue"
	"github.com/tasklane/automation/pkg/actions/delay"
	"github.com/tasklane/automation/pkg/actions/sendemail"
	"github.com/tasklane/automation/pkg/actions/sendnotification"
	"github.com/tasklane/automation/pkg/actions/updatefield"
	"github.com/tasklane/automation/pkg/actions/updatestatus"
	"github.com/tasklane/automation/pkg/actions/webhookcall"
	"github.com/tasklane/automation/pkg/eventbus"
	"github.com/tasklane/automation/pkg/protocol"
	"github.com/tasklane/automation/pkg/registry"
	"github.com/tasklane/automation/pkg/triggers/externalevent"
	"github.com/tasklane/automation/pkg/triggers/fieldchange"
	"github.com/tasklane/automation/pkg/triggers/scheduled"
	"github.com/tasklane/automation/pkg/triggers/timebased"
	"github.com/tasklane/automation/pkg/triggers/useraction"
)

func registerActions(reg *registry.Registry, issues protocol.IssueService, bus eventbus.EventBus) {
	reg.RegisterAction(updatefield.NewActionFactory(issues))
	reg.RegisterAction(assignuser.NewActionFactory(issues))
	reg.RegisterAction(updatestatus.NewActionFactory(issues))
	reg.RegisterAction(createissue.NewActionFactory(issues))
	reg.RegisterAction(sendnotification.NewActionFactory(bus))
	reg.RegisterAction(sendemail.NewActionFactory(bus))
	reg.RegisterAction(webhookcall.NewActionFactory())
	reg.RegisterAction(delay.NewActionFactory())
}

func registerTriggerMatchers(reg *registry.Registry) {
	reg.RegisterTriggerMatcher(fieldchange.NewMatcher())
	reg.RegisterTriggerMatcher(timebased.NewMatcher())
	reg.RegisterTriggerMatcher(useraction.NewMatcher())
	reg.RegisterTriggerMatcher(externalevent.NewMatcher())
	reg.RegisterTriggerMatcher(scheduled.NewMatcher())
}

// NewRegistry wires every built-in action handler and trigger matcher. The
// trigger enum is closed, so a missing matcher is a startup error.
func NewRegistry(logger *slog.Logger, issues protocol.IssueService, bus eventbus.EventBus) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	registerActions(reg, issues, bus)
	registerTriggerMatchers(reg)

	if err := reg.AssertComplete(); err != nil {
		return nil, err
	}

	return reg, nil
}
