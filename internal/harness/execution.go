package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/urioracle/internal/migspec"
	"github.com/roach88/urioracle/internal/refmodel"
	"github.com/roach88/urioracle/internal/storageuri"
	"github.com/roach88/urioracle/internal/store"
)

// ExecutionScenario is one store-backed check of the tool.
type ExecutionScenario struct {
	Name        string
	Description string
	Kind        Kind

	Overrides migspec.Args
	Deletions []string

	// MatchEndpoint replaces the cloud endpoint in the endpoint match
	// dimension. Rewrites keep using the cloud's endpoint.
	MatchEndpoint string
}

// sampleOverrides is the standard migration: bravo@gopher on any non-ADL
// scheme moves to wasbs on account echo.
func sampleOverrides() migspec.Args {
	return migspec.Pairs(
		"accountsrc", "gopher",
		"adlaccounts", "gopher",
		"containersrc", "bravo",
		"pathsrc", migspec.Wildcard,
		"typesrc", "abfs,abfss,wasb,wasbs",
		"accountdest", "echo",
		"typedest", "wasbs",
	)
}

// PathOptions are the source path lists the path-pattern scenarios replace.
var PathOptions = []string{
	"warehouse/hivetables",
	"warehouse/hive",
	"hive",
	"managed/tables",
	"warehouse,managed/tables/hive",
	"managed/tables/hive,managed/tables",
}

// ExecutionScenarios returns the built-in execution catalogue.
func ExecutionScenarios() []ExecutionScenario {
	var out []ExecutionScenario

	for _, cloud := range storageuri.Clouds() {
		out = append(out, ExecutionScenario{
			Name:        "sample-migration-cloud-" + cloud.Name,
			Description: "standard migration in the " + cloud.Name + " cloud",
			Kind:        KindMigration,
			Overrides:   migspec.Pairs("environment", cloud.Name).With(sampleOverrides()),
		})
	}

	for _, table := range store.MetastoreTables() {
		out = append(out, ExecutionScenario{
			Name:        "sample-migration-table-" + strings.ToLower(table.Name),
			Description: "standard migration against " + table.Name,
			Kind:        KindMigration,
			Overrides:   migspec.Pairs("target", table.Name).With(sampleOverrides()),
		})
	}

	for _, client := range []string{"beeline", "sqlcmd"} {
		out = append(out, ExecutionScenario{
			Name:        "sample-migration-client-" + client,
			Description: "standard migration through " + client,
			Kind:        KindMigration,
			Overrides:   migspec.Pairs("queryclient", client).With(sampleOverrides()),
		})
	}

	out = append(out, adlScenarios()...)
	out = append(out, pathPatternScenarios()...)

	out = append(out,
		ExecutionScenario{
			Name:        "non-matching-unchanged",
			Description: "no URI matches, so nothing may change",
			Kind:        KindMigration,
			Overrides: migspec.Pairs(
				"containersrc", "water",
				"typesrc", "abfss",
				"accountsrc", "xylophone",
				"adlaccounts", "yellow",
				"accountdest", "zebra",
				"typedest", "wasb",
			),
		},
		ExecutionScenario{
			Name:        "all-migration-aspects",
			Description: "every destination field set",
			Kind:        KindMigration,
			Overrides:   sampleOverrides().With(migspec.Pairs("containerdest", "newctr", "pathdest", "newpath")),
		},
		ExecutionScenario{
			Name:        "failure-injection",
			Description: "a live run killed while writing leaves the table unchanged",
			Kind:        KindKill,
			Overrides:   sampleOverrides(),
		},
		ExecutionScenario{
			Name:        "idempotent",
			Description: "a second identical run over migrated data changes nothing more",
			Kind:        KindIdempotent,
			Overrides:   sampleOverrides(),
		},
		ExecutionScenario{
			Name:        "maximum-size-selectors",
			Description: "every source list at the entry limit",
			Kind:        KindMigration,
			Overrides:   maximumSizeOverrides(),
		},
		ExecutionScenario{
			Name:        "no-destination",
			Description: "base arguments only: the tool refuses and the store is untouched",
			Kind:        KindNoop,
		},
	)

	return out
}

func adlScenarios() []ExecutionScenario {
	common := migspec.Pairs("containersrc", migspec.Wildcard, "pathsrc", migspec.Wildcard)
	adlSrc := migspec.Pairs("typesrc", "adl", "adlaccounts", "gopher,echo")
	adlDest := migspec.Pairs("accountdest", "newadlacct", "typedest", "adl")
	nonADLSrc := migspec.Pairs("typesrc", "wasb", "accountsrc", "echo")
	nonADLDest := migspec.Pairs("accountdest", "newwasbacct", "typedest", "wasb")

	return []ExecutionScenario{
		{
			Name:          "adl-to-adl",
			Kind:          KindMigration,
			Overrides:     common.With(adlSrc).With(adlDest),
			MatchEndpoint: storageuri.ADLDomain,
		},
		{
			Name:          "adl-to-non-adl",
			Kind:          KindMigration,
			Overrides:     common.With(adlSrc).With(nonADLDest),
			MatchEndpoint: storageuri.ADLDomain,
		},
		{
			Name:      "non-adl-to-adl",
			Kind:      KindMigration,
			Overrides: common.With(nonADLSrc).With(adlDest),
		},
	}
}

func pathPatternScenarios() []ExecutionScenario {
	common := migspec.Pairs(
		"containersrc", migspec.Wildcard,
		"typesrc", migspec.Wildcard,
		"accountsrc", migspec.Wildcard,
		"adlaccounts", migspec.Wildcard,
		"accountdest", "newwasbacct",
		"typedest", "wasb",
	)

	out := make([]ExecutionScenario, 0, len(PathOptions))
	for _, paths := range PathOptions {
		name := strings.NewReplacer("/", "-", ",", "+").Replace(paths)
		out = append(out, ExecutionScenario{
			Name:        "path-pattern-" + name,
			Description: "replace path(s) " + paths + " with resultpath",
			Kind:        KindMigration,
			Overrides:   common.With(migspec.Pairs("pathsrc", paths, "pathdest", "resultpath")),
		})
	}
	return out
}

func maximumSizeOverrides() migspec.Args {
	long := "alpha,bravo,charlie,delta,echo,foxtrot,gopher,hedgehog,igloo,jupiter"
	return migspec.Pairs(
		"containersrc", long,
		"pathsrc", long,
		"accountsrc", long,
		"adlaccounts", long,
		"typesrc", "wasb,adl",
		"accountdest", "newacct",
		"typedest", "wasb",
	)
}

// execBaseArgs is the base argument list with the store connection
// settings the tool needs to reach the same database as the oracle.
func (h *Harness) execBaseArgs() migspec.Args {
	args := h.cfg.BaseArgs.Clone()
	for _, kv := range []struct {
		field migspec.Field
		value string
	}{
		{migspec.FieldServer, h.cfg.Store.Server},
		{migspec.FieldDatabase, h.cfg.Store.Database},
		{migspec.FieldUser, h.cfg.Store.User},
		{migspec.FieldPassword, h.cfg.Store.Password},
	} {
		if kv.value != "" {
			args = args.Set(kv.field.Flag(), kv.value)
		}
	}
	return args
}

// runExecutionSuite seeds, drives and verifies every execution scenario.
// A non-nil error aborts the run.
func (h *Harness) runExecutionSuite(ctx context.Context, scenarios []ExecutionScenario, report *SuiteReport) error {
	gw, err := store.Open(h.cfg.Store)
	if err != nil {
		return &ExecutionFault{Err: fmt.Errorf("open store: %w", err)}
	}
	defer gw.Close()

	if err := h.checkPreconditions(ctx, gw); err != nil {
		return err
	}

	created := false
	defer func() {
		if created && h.cfg.Cleanup {
			h.dropTables(context.WithoutCancel(ctx), gw)
		}
	}()

	base := h.execBaseArgs()
	for _, es := range scenarios {
		res, err := h.runExecutionScenario(ctx, gw, base, es, &created)
		report.Add(res)
		if err != nil {
			return err
		}
	}
	return nil
}

// checkPreconditions refuses to start if any metastore table exists.
func (h *Harness) checkPreconditions(ctx context.Context, gw *store.Gateway) error {
	for _, t := range store.MetastoreTables() {
		exists, err := gw.TableExists(ctx, t.Name)
		if err != nil {
			return &ExecutionFault{Phase: PhaseInit, Err: err}
		}
		if exists {
			return &PreconditionError{Table: t.Name, Err: store.ErrTableExists}
		}
	}
	return nil
}

func (h *Harness) dropTables(ctx context.Context, gw *store.Gateway) {
	for _, t := range store.MetastoreTables() {
		if err := gw.DropTableIfExists(ctx, t.Name); err != nil {
			h.logger.Error("failed to drop table", "table", t.Name, "error", err)
		}
	}
}

func (h *Harness) runExecutionScenario(ctx context.Context, gw *store.Gateway, base migspec.Args, es ExecutionScenario, created *bool) (*Result, error) {
	res := NewResult(es.Name, SuiteExec)
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	sc, err := newScenarioContext(gw, base, es, h.cfg.Dataset, res)
	if err != nil {
		res.AddError(fmt.Sprintf("invalid scenario: %v", err))
		return res, nil
	}

	h.logger.Info("execution scenario", "name", es.Name, "kind", es.Kind, "table", sc.Table.Name, "cloud", sc.Cloud.Name)

	err = h.execute(ctx, sc, created)
	switch {
	case err == nil:
		sc.enter(PhaseCleanup)
	case IsAssertionMismatch(err):
		res.AddError(err.Error())
		h.logger.Warn("execution scenario failed", "name", es.Name, "phase", sc.Phase, "error", firstLine(err.Error()))
	default:
		res.AddError(err.Error())
		return res, err
	}
	return res, nil
}

func newScenarioContext(gw *store.Gateway, base migspec.Args, es ExecutionScenario, dataset migspec.Dataset, res *Result) (*ScenarioContext, error) {
	args := base.With(es.Overrides).Delete(es.Deletions...)

	spec, err := migspec.FromArgs(args)
	if err != nil {
		return nil, err
	}
	cloud, err := spec.Cloud()
	if err != nil {
		return nil, err
	}
	table, ok := store.LookupTable(spec.Target)
	if !ok {
		return nil, fmt.Errorf("unknown target table %q", spec.Target)
	}

	sc := &ScenarioContext{
		Scenario:      es,
		Args:          args,
		Spec:          spec,
		Cloud:         cloud,
		MatchEndpoint: cloud.Endpoint,
		Table:         table,
		Dataset:       dataset.Clone(),
		Gateway:       gw,
		Result:        res,
	}
	if es.MatchEndpoint != "" {
		sc.MatchEndpoint = es.MatchEndpoint
	}
	sc.enter(PhaseInit)
	return sc, nil
}

func (h *Harness) execute(ctx context.Context, sc *ScenarioContext, created *bool) error {
	if err := h.seed(ctx, sc); err != nil {
		return err
	}
	*created = true

	switch sc.Scenario.Kind {
	case KindMigration, "":
		return h.migrate(ctx, sc)
	case KindIdempotent:
		return h.migrateTwice(ctx, sc)
	case KindKill:
		return h.interrupt(ctx, sc)
	case KindNoop:
		return h.refuse(ctx, sc)
	default:
		return fmt.Errorf("unknown scenario kind %q", sc.Scenario.Kind)
	}
}

func (h *Harness) fault(sc *ScenarioContext, err error) error {
	return &ExecutionFault{Scenario: sc.Scenario.Name, Phase: sc.Phase, Err: err}
}

// seed recreates all four tables from the configured dataset and checks
// that the store's own matcher agrees with the prediction.
func (h *Harness) seed(ctx context.Context, sc *ScenarioContext) error {
	sc.enter(PhaseSeed)
	gw := sc.Gateway

	sc.Snapshots = make(map[string][]string, len(store.MetastoreTables()))
	for _, t := range store.MetastoreTables() {
		if err := gw.DropTableIfExists(ctx, t.Name); err != nil {
			return h.fault(sc, err)
		}
		if err := gw.CreateTable(ctx, t); err != nil {
			return h.fault(sc, err)
		}
		if err := gw.BulkInsert(ctx, t, sc.Dataset); err != nil {
			return h.fault(sc, err)
		}
		rows, err := gw.QueryAll(ctx, t)
		if err != nil {
			return h.fault(sc, err)
		}
		sc.Snapshots[t.Name] = rows
	}

	sc.Prediction = refmodel.PredictMatching(sc.Dataset, sc.Spec, sc.Cloud, sc.MatchEndpoint)
	h.logger.Debug("seeded tables", "rows", len(sc.Dataset), "predicted", len(sc.Prediction))

	return h.crossCheck(ctx, sc)
}

// crossCheck asserts that every predicted row is also selected by the
// store's LIKE match on the migration's source pattern.
func (h *Harness) crossCheck(ctx context.Context, sc *ScenarioContext) error {
	pattern := store.LikePattern(sc.Spec, sc.MatchEndpoint)
	rows, err := sc.Gateway.QueryMatchingWithID(ctx, sc.Table, pattern)
	if err != nil {
		return h.fault(sc, err)
	}

	selected := make(map[int64]string, len(rows))
	for _, r := range rows {
		selected[r.ID] = r.URI
	}
	for _, rec := range sc.Prediction {
		if uri, ok := selected[rec.ID]; !ok || uri != rec.OriginalURI {
			return &AssertionMismatch{
				Type:     AssertStoreMatches,
				Scenario: sc.Scenario.Name,
				Phase:    sc.Phase,
				Args:     sc.Args,
				Expected: fmt.Sprintf("row %d (%s) selected by %q", rec.ID, rec.OriginalURI, pattern),
				Actual:   fmt.Sprintf("%d row(s) selected, row %d not among them", len(rows), rec.ID),
			}
		}
	}
	return nil
}

// migrate runs the dry-run then live-run pass against sc.Dataset.
func (h *Harness) migrate(ctx context.Context, sc *ScenarioContext) error {
	sc.Prediction = refmodel.PredictMatching(sc.Dataset, sc.Spec, sc.Cloud, sc.MatchEndpoint)

	sc.enter(PhaseDryRun)
	dry, err := h.invoke(ctx, sc)
	if err != nil {
		return err
	}
	if err := dry.assertExitCode(ExitDryRun); err != nil {
		return err
	}
	if err := dry.assertReport(sc.Prediction); err != nil {
		return err
	}

	sc.enter(PhaseVerifyNoChange)
	if err := h.verifyTables(ctx, sc, dry, sc.Dataset); err != nil {
		return err
	}

	sc.enter(PhaseLiveRun)
	live, err := h.invoke(ctx, sc, migspec.LiveRunSwitch)
	if err != nil {
		return err
	}
	if err := live.assertExitCode(ExitSuccess); err != nil {
		return err
	}
	if err := live.assertReport(sc.Prediction); err != nil {
		return err
	}

	sc.enter(PhaseVerifyChange)
	return h.verifyTables(ctx, sc, live, refmodel.Apply(sc.Dataset, sc.Prediction))
}

// migrateTwice migrates, advances the dataset to what the store now holds,
// and migrates again. The dataset is restored afterwards.
func (h *Harness) migrateTwice(ctx context.Context, sc *ScenarioContext) error {
	original := sc.Dataset.Clone()
	defer func() { sc.Dataset = original }()

	if err := h.migrate(ctx, sc); err != nil {
		return err
	}

	current, err := sc.Gateway.QueryAll(ctx, sc.Table)
	if err != nil {
		return h.fault(sc, err)
	}
	sc.Dataset = current
	h.logger.Debug("advanced dataset to store contents", "name", sc.Scenario.Name, "rows", len(current))

	return h.migrate(ctx, sc)
}

// interrupt kills a live run at the marker and checks nothing was written.
func (h *Harness) interrupt(ctx context.Context, sc *ScenarioContext) error {
	sc.enter(PhaseLiveRun)
	out, err := h.driver.RunMonitored(ctx, sc.Args, h.cfg.Marker, migspec.LiveRunSwitch)
	if err != nil {
		return h.fault(sc, err)
	}
	inv := sc.invocation(out.Result)
	h.logger.Debug("monitored run finished",
		"name", sc.Scenario.Name,
		"marker_seen", out.MarkerSeen,
		"signaled", out.Signaled,
		"states", out.States)

	if err := sc.Gateway.DropTableIfExists(ctx, h.cfg.StagingTable); err != nil {
		return h.fault(sc, err)
	}

	sc.enter(PhaseVerifyNoChange)
	if !out.MarkerSeen {
		return inv.mismatch(AssertMarker,
			fmt.Sprintf("stdout line containing %q", h.cfg.Marker),
			fmt.Sprintf("marker never seen, exit code %d", out.ExitCode))
	}
	return h.verifyTables(ctx, sc, inv, sc.Dataset)
}

// refuse expects the tool to decline both passes and leave the store alone.
func (h *Harness) refuse(ctx context.Context, sc *ScenarioContext) error {
	passes := []struct {
		phase    Phase
		switches []string
	}{
		{PhaseDryRun, nil},
		{PhaseLiveRun, []string{migspec.LiveRunSwitch}},
	}

	for _, pass := range passes {
		sc.enter(pass.phase)
		inv, err := h.invoke(ctx, sc, pass.switches...)
		if err != nil {
			return err
		}
		if err := inv.assertExitCode(ExitNoChange); err != nil {
			return err
		}
		if err := inv.assertContains(MsgNoDestination); err != nil {
			return err
		}

		sc.enter(PhaseVerifyNoChange)
		if err := h.verifyTables(ctx, sc, inv, sc.Dataset); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) invoke(ctx context.Context, sc *ScenarioContext, switches ...string) (invocation, error) {
	h.logger.Debug("invoking tool", "name", sc.Scenario.Name, "phase", sc.Phase, "switches", switches)
	out, err := h.driver.Run(ctx, sc.Args, switches...)
	if err != nil {
		return invocation{}, h.fault(sc, err)
	}
	return sc.invocation(out), nil
}

// verifyTables checks the target table against want and every other table
// against its seeded snapshot.
func (h *Harness) verifyTables(ctx context.Context, sc *ScenarioContext, inv invocation, want []string) error {
	inv.phase = sc.Phase

	for _, t := range targetFirst(sc.Table) {
		got, err := sc.Gateway.QueryAll(ctx, t)
		if err != nil {
			return h.fault(sc, err)
		}

		expected := sc.Snapshots[t.Name]
		if t.Name == sc.Table.Name {
			expected = want
		}
		if err := inv.assertTable(t.Name, expected, got); err != nil {
			return err
		}
	}
	return nil
}

// targetFirst lists the metastore tables with target moved to the front.
func targetFirst(target store.TableDescriptor) []store.TableDescriptor {
	tables := []store.TableDescriptor{target}
	for _, t := range store.MetastoreTables() {
		if t.Name != target.Name {
			tables = append(tables, t)
		}
	}
	return tables
}
