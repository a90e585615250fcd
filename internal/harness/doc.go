// Package harness checks a storage-URI migration tool against the reference
// model.
//
// Two suites run against the tool executable:
//
//   - InputTests invokes the tool with bad or incomplete arguments and
//     asserts on its exit code and stdout. No database is touched.
//   - ExecTests seeds the metastore tables, predicts every rewrite with
//     refmodel, runs the tool dry and live, and compares both its report
//     and the resulting tables with the prediction.
//
// Each execution scenario moves through the phases
//
//	INIT -> SEED -> DRY_RUN -> VERIFY_NO_CHANGE -> LIVE_RUN -> VERIFY_CHANGE -> CLEANUP
//
// An AssertionMismatch fails the current scenario and the run moves on. An
// ExecutionFault (the tool failed to launch, the store failed) or a
// PreconditionError (a metastore table already exists) stops the run.
//
// # Scenario Format
//
// Extra scenarios are YAML files checked against an embedded CUE schema:
//
//	name: adl-source-in-china-explicit
//	suite: input
//	args:
//	  typesrc: adl
//	  adlaccounts: foo
//	  environment: china
//	expect:
//	  exit: 50
//	  contains:
//	    - "Cannot include Azure Data Lake as a source type"
//
//	name: sqlcmd-func-ru
//	suite: exec
//	kind: migration
//	table: FUNC_RU
//	args:
//	  queryclient: sqlcmd
//	  containersrc: bravo
//	  pathsrc: "*"
//	  typedest: wasbs
//	  accountdest: echo
//
// Exec kinds are migration, idempotent, kill and noop.
package harness
