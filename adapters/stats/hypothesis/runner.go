package hypothesis

import (
	"fmt"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// TestRequest selects a test and its inputs. Columns name numeric columns
// compared directly; GroupColumn and ValueColumn split one numeric column by
// the labels of another.
type TestRequest struct {
	Kind        domainstats.TestKind `json:"kind"`
	Columns     []string             `json:"columns,omitempty"`
	ValueColumn string               `json:"value_column,omitempty"`
	GroupColumn string               `json:"group_column,omitempty"`
}

// Run dispatches a request. Unknown kinds produce an explicit
// UNSUPPORTED_TEST output instead of a number.
func Run(ds *dataset.Dataset, req TestRequest) domainstats.TestOutput {
	out := domainstats.TestOutput{Test: req.Kind, PValue: domainstats.NaN()}
	for _, c := range append(append([]string(nil), req.Columns...), req.ValueColumn, req.GroupColumn) {
		if c != "" && !ds.HasColumn(c) {
			return failed(out, errors.ColumnNotFound(c))
		}
	}

	switch req.Kind {
	case domainstats.TestTTest:
		return runTTest(ds, req, out)
	case domainstats.TestNormality:
		column := req.ValueColumn
		if column == "" && len(req.Columns) > 0 {
			column = req.Columns[0]
		}
		if column == "" {
			return failed(out, errors.InvalidInput("normality test needs a column"))
		}
		return JarqueBera(ds.NumericColumn(column), column)
	case domainstats.TestANOVA:
		if req.GroupColumn != "" {
			if req.ValueColumn == "" {
				return failed(out, errors.InvalidInput("ANOVA by group needs a value column"))
			}
			return OneWayANOVA(GroupBy(ds, req.ValueColumn, req.GroupColumn))
		}
		return OneWayANOVA(ColumnGroups(ds, req.Columns))
	default:
		out.Failure = domainstats.FailureFrom(errors.UnsupportedTest(string(req.Kind)))
		out.Conclusion = "unimplemented"
		return out
	}
}

func runTTest(ds *dataset.Dataset, req TestRequest, out domainstats.TestOutput) domainstats.TestOutput {
	if req.GroupColumn != "" {
		if req.ValueColumn == "" {
			return failed(out, errors.InvalidInput("t-test by group needs a value column"))
		}
		groups := GroupBy(ds, req.ValueColumn, req.GroupColumn)
		if len(groups) != 2 {
			return failed(out, errors.InvalidInput(fmt.Sprintf(
				"t-test needs exactly 2 groups in %q, found %d; use anova for more", req.GroupColumn, len(groups))))
		}
		return WelchTTest(groups[0].Values, groups[1].Values, groups[0].Name, groups[1].Name)
	}
	if len(req.Columns) != 2 {
		return failed(out, errors.InvalidInput("t-test compares exactly 2 columns"))
	}
	a, b := req.Columns[0], req.Columns[1]
	return WelchTTest(ds.NumericColumn(a), ds.NumericColumn(b), a, b)
}
