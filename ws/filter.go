package ws

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/tcriess/gift-circle/filter"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/types"
)

// EvaluateFilterEvent compiles the event's target filter and evaluates
// it for this client. Used for history replay, where no pre-compiled
// program is at hand.
func (c *Client) EvaluateFilterEvent(event *types.Event) bool {
	if event == nil {
		return false
	}
	var prog *vm.Program
	if event.TargetFilter != "" {
		var err error
		prog, err = filter.Compile(event.TargetFilter)
		if err != nil {
			globals.AppLogger.Error("could not compile filter", "filter", event.TargetFilter, "error", err)
			return false
		}
	}
	return c.RunFilterEvent(event, prog)
}

// RunFilterEvent decides whether the event is delivered to this client.
// prog is the event's compiled target filter (nil means untargeted). On
// top of that the client's own subscription filter is applied, if any.
func (c *Client) RunFilterEvent(event *types.Event, prog *vm.Program) bool {
	if event == nil {
		return false
	}
	env := c.filterEnv(event)
	if prog != nil && !runFilter(prog, env) {
		return false
	}
	if subscription := c.Filter(); subscription != "" {
		subProg, err := filter.Compile(subscription)
		if err != nil {
			globals.AppLogger.Error("could not compile subscription filter", "filter", subscription, "error", err)
			return true // a broken subscription filter must not hide events
		}
		return runFilter(subProg, env)
	}
	return true
}

func (c *Client) filterEnv(event *types.Event) filter.Env {
	return filter.Env{
		Room: c.hub.roomEnv(),
		Source: filter.Source{
			Member: filter.Member{
				Id: event.MemberId,
			},
		},
		Target: filter.Target{
			Member: filter.Member{
				Id:   c.member.Id,
				Nick: c.member.Nick,
				Role: c.member.Role,
			},
		},
		Created:       event.Created.Unix(),
		Name:          event.Name,
		Tags:          event.Tags,
		AsInt:         filter.AsInt,
		AsFloat:       filter.AsFloat,
		AsStringSlice: filter.AsStringSlice,
		AsIntSlice:    filter.AsIntSlice,
		AsFloatSlice:  filter.AsFloatSlice,
	}
}

func runFilter(prog *vm.Program, env filter.Env) bool {
	res, err := expr.Run(prog, env)
	if err != nil {
		globals.AppLogger.Error("could not run filter", "error", err)
		return false
	}
	if bRes, ok := res.(bool); ok && bRes {
		return true
	}
	return false
}
