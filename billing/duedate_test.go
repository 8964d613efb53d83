package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/fee-engine/billing"
)

func TestCalculateDueDate(t *testing.T) {
	tests := []struct {
		name        string
		periodStart billing.Date
		periodEnd   billing.Date
		dueDay      int
		want        string
	}{
		{
			name:        "due day before period end",
			periodStart: billing.NewDate(2024, time.March, 1),
			periodEnd:   billing.NewDate(2024, time.March, 31),
			dueDay:      10,
			want:        "2024-03-10",
		},
		{
			name:        "due day equals period end",
			periodStart: billing.NewDate(2024, time.March, 1),
			periodEnd:   billing.NewDate(2024, time.March, 31),
			dueDay:      31,
			want:        "2024-03-31",
		},
		{
			// Candidate is Jan 5, before the Jan 31 end: no clamp needed.
			name:        "early due day within january",
			periodStart: billing.NewDate(2024, time.January, 1),
			periodEnd:   billing.NewDate(2024, time.January, 31),
			dueDay:      5,
			want:        "2024-01-05",
		},
		{
			// Day 31 in February rolls into March before the clamp check;
			// the final candidate is after period end, so the clamp wins.
			name:        "rollover past short month clamps to period end",
			periodStart: billing.NewDate(2024, time.February, 1),
			periodEnd:   billing.NewDate(2024, time.February, 29),
			dueDay:      31,
			want:        "2024-02-29",
		},
		{
			name:        "due day 30 in february rolls and clamps",
			periodStart: billing.NewDate(2023, time.February, 1),
			periodEnd:   billing.NewDate(2023, time.February, 28),
			dueDay:      30,
			want:        "2023-02-28",
		},
		{
			name:        "absent due day defaults to period end plus seven days",
			periodStart: billing.NewDate(2024, time.March, 1),
			periodEnd:   billing.NewDate(2024, time.March, 31),
			dueDay:      0,
			want:        "2024-04-07",
		},
		{
			name:        "out of range due day defaults to period end plus seven days",
			periodStart: billing.NewDate(2024, time.March, 1),
			periodEnd:   billing.NewDate(2024, time.March, 31),
			dueDay:      45,
			want:        "2024-04-07",
		},
		{
			name:        "negative due day defaults to period end plus seven days",
			periodStart: billing.NewDate(2024, time.December, 1),
			periodEnd:   billing.NewDate(2024, time.December, 31),
			dueDay:      -1,
			want:        "2025-01-07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.CalculateDueDate(tt.periodStart, tt.periodEnd, tt.dueDay)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
