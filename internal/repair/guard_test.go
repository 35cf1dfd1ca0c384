package repair

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozanyurtsever/promopipe/internal/common"
	"github.com/ozanyurtsever/promopipe/internal/model"
)

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}

func intPtr(v int) *int { return &v }

func TestValidatePatch(t *testing.T) {
	tests := []struct {
		name    string
		patch   model.Patch
		wantErr bool
	}{
		{
			name:  "empty patch passes",
			patch: model.Patch{},
		},
		{
			name: "ordered validity passes",
			patch: model.Patch{
				ValidFrom:  datePtr(t, "2026-06-01"),
				ValidUntil: datePtr(t, "2026-06-30"),
			},
		},
		{
			name: "half-open validity passes",
			patch: model.Patch{
				ValidUntil: datePtr(t, "2026-06-30"),
			},
		},
		{
			name: "inverted validity rejected",
			patch: model.Patch{
				ValidFrom:  datePtr(t, "2025-06-01"),
				ValidUntil: datePtr(t, "2025-05-01"),
			},
			wantErr: true,
		},
		{
			name: "equal validity rejected",
			patch: model.Patch{
				ValidFrom:  datePtr(t, "2025-06-01"),
				ValidUntil: datePtr(t, "2025-06-01"),
			},
			wantErr: true,
		},
		{
			name:  "positive installments pass",
			patch: model.Patch{Installments: intPtr(6)},
		},
		{
			name:    "zero installments rejected",
			patch:   model.Patch{Installments: intPtr(0)},
			wantErr: true,
		},
		{
			name:    "negative installments rejected",
			patch:   model.Patch{Installments: intPtr(-3)},
			wantErr: true,
		},
		{
			name:  "nil eligible cards untouched",
			patch: model.Patch{EligibleCards: nil},
		},
		{
			name:  "populated eligible cards pass",
			patch: model.Patch{EligibleCards: []string{"Bonus Platinum"}},
		},
		{
			name:    "empty eligible cards rejected",
			patch:   model.Patch{EligibleCards: []string{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePatch(tt.patch)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrValidationRejected)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPolicyClassify(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name       string
		confidence float64
		want       model.RepairStatus
	}{
		{"above auto threshold", 0.81, model.RepairAutoApplied},
		{"exactly auto threshold", 0.80, model.RepairAutoApplied},
		{"review band", 0.60, model.RepairNeedsReview},
		{"exactly review threshold", 0.55, model.RepairNeedsReview},
		{"below review threshold", 0.40, model.RepairFailed},
		{"zero", 0, model.RepairFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Classify(tt.confidence))
		})
	}
}
