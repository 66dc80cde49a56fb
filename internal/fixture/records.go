package fixture

import "fmt"

// TestKind identifies which clinical test shape to build. The backend
// expects a discriminated union: each kind carries only the fields that
// type requires.
type TestKind string

const (
	// TestHIV is a rapid or standard HIV test submission.
	TestHIV TestKind = "HIV"
	// TestHCV is a hepatitis C test submission.
	TestHCV TestKind = "HCV"
	// TestBloodwork is a bloodwork panel submission.
	TestBloodwork TestKind = "Bloodwork"
)

// TestRecord builds a test-record payload for the given kind. The test
// endpoints predate the camelCase convention the registration endpoints
// use, so field names here are snake_case.
func (f *Factory) TestRecord(kind TestKind, ov Overrides) (map[string]any, error) {
	var base map[string]any

	switch kind {
	case TestHIV:
		base = map[string]any{
			"test_type":      string(TestHIV),
			"hiv_result":     f.fk.RandomString([]string{"negative", "positive", "indeterminate"}),
			"hiv_type":       f.fk.RandomString([]string{"rapid", "standard"}),
			"hiv_tester":     f.fk.Name(),
			"date_submitted": f.today(),
		}
	case TestHCV:
		base = map[string]any{
			"test_type":      string(TestHCV),
			"hcv_result":     f.fk.RandomString([]string{"negative", "positive"}),
			"hcv_tester":     f.fk.Name(),
			"date_submitted": f.today(),
		}
	case TestBloodwork:
		base = map[string]any{
			"test_type":      string(TestBloodwork),
			"bloodwork_type": f.fk.RandomString([]string{"CBC", "liver_panel", "STI_panel"}),
			"circles":        f.fk.Number(1, 5),
			"result":         f.fk.RandomString([]string{"pending", "normal", "abnormal"}),
			"date_submitted": f.today(),
			"tester":         f.fk.Name(),
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTestKind, kind)
	}

	return apply(base, ov), nil
}
