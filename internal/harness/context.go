package harness

import (
	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/procdriver"
	"github.com/roach88/urioracle/internal/refmodel"
	"github.com/roach88/urioracle/internal/storageuri"
	"github.com/roach88/urioracle/internal/store"
)

// ScenarioContext is the explicit state of one execution scenario. It is
// created per scenario and passed by pointer through every step, so no
// state leaks between scenarios.
type ScenarioContext struct {
	Scenario ExecutionScenario

	// Args is what the tool is invoked with: base arguments, connection
	// settings, then the scenario's overrides and deletions.
	Args  migspec.Args
	Spec  migspec.Spec
	Cloud storageuri.Cloud
	Table store.TableDescriptor

	// MatchEndpoint is the endpoint predictions match against: the cloud's
	// unless the scenario overrides it.
	MatchEndpoint string

	// Dataset is what the target table holds before the next run. The
	// idempotent kind advances it to the store contents between passes.
	Dataset migspec.Dataset

	// Prediction is recomputed from Dataset before every pass.
	Prediction []refmodel.MatchRecord

	// Snapshots holds each table's contents right after seeding.
	Snapshots map[string][]string

	Gateway *store.Gateway
	Phase   Phase
	Result  *Result
}

func (sc *ScenarioContext) enter(p Phase) {
	sc.Phase = p
	sc.Result.Phase = p
}

func (sc *ScenarioContext) invocation(res procdriver.Result) invocation {
	return invocation{
		scenario: sc.Scenario.Name,
		phase:    sc.Phase,
		args:     sc.Args,
		result:   res,
	}
}
