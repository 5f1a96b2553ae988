package main

import (
	"attribution/internal/app"
	"attribution/internal/domain"
	"attribution/internal/util"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_newBucketRows(t *testing.T) {
	feb := domain.BucketFor(domain.Month, util.NewDate(2024, 2, 29))
	report := app.AttributionReport{
		Granularities: []app.GranularityReport{
			{
				Granularity: domain.Month,
				Buckets: []domain.BucketResult{
					{
						Bucket:       feb,
						Ticker:       "RY.TO",
						Contribution: util.FloatPointer(0.1),
						Weight:       util.FloatPointer(0.7),
						Return:       util.FloatPointer(0.1),
						NumPeriods:   1,
						Presence:     domain.PresenceHeld,
					},
					{
						Bucket:   feb,
						Ticker:   "AAPL",
						Presence: domain.PresenceNoPositionThisBucket,
					},
				},
			},
		},
	}

	require.Equal(t, []bucketRow{
		{
			Granularity:  "month",
			Bucket:       "Feb 2024",
			Ticker:       "RY.TO",
			Contribution: "10.00",
			Weight:       "70.00",
			Return:       "10.00",
			Presence:     "held",
		},
		{
			Granularity: "month",
			Bucket:      "Feb 2024",
			Ticker:      "AAPL",
			Presence:    "no position this bucket",
		},
	}, newBucketRows(report))
}
