package calculator

import (
	"attribution/internal/domain"
	"attribution/internal/util"
	"sort"

	"github.com/shopspring/decimal"
)

// RankContributors builds the top contributors / disruptors table for the
// bucket results of a single bucket.
//
// Held tickers are split into contribution >= 0 and < 0, sorted (stable, so
// ties keep input order) and the first topN of each side are kept. Everything
// else is summed into Other Holdings, whose weight is forced to the residual
// 100% - top - bottom so the rows always add up to exactly 100%.
func RankContributors(results []domain.BucketResult, topN int) domain.RankingOutput {
	if topN <= 0 {
		topN = util.DefaultTopN
	}

	out := domain.RankingOutput{
		TopContributors: []domain.RankedRow{},
		TopDisruptors:   []domain.RankedRow{},
		Warnings:        []domain.Warning{},
	}
	if len(results) > 0 {
		out.Bucket = results[0].Bucket
	}

	positives := []int{}
	negatives := []int{}
	for i, r := range results {
		if r.Presence != domain.PresenceHeld {
			continue
		}
		if r.ContributionValue() >= 0 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}

	sort.SliceStable(positives, func(i, j int) bool {
		return results[positives[i]].ContributionValue() > results[positives[j]].ContributionValue()
	})
	sort.SliceStable(negatives, func(i, j int) bool {
		return results[negatives[i]].ContributionValue() < results[negatives[j]].ContributionValue()
	})

	if len(positives) > topN {
		positives = positives[:topN]
	}
	if len(negatives) > topN {
		negatives = negatives[:topN]
	}

	ranked := map[int]bool{}
	rankedWeight := decimal.Zero
	rankedContribution := 0.0
	for _, i := range positives {
		ranked[i] = true
		row := rankedRow(results[i])
		out.TopContributors = append(out.TopContributors, row)
		rankedWeight = rankedWeight.Add(decimal.NewFromFloat(row.Weight))
		rankedContribution += row.Contribution
	}
	for _, i := range negatives {
		ranked[i] = true
		row := rankedRow(results[i])
		out.TopDisruptors = append(out.TopDisruptors, row)
		rankedWeight = rankedWeight.Add(decimal.NewFromFloat(row.Weight))
		rankedContribution += row.Contribution
	}

	otherContribution := 0.0
	literalWeight := 0.0
	for i, r := range results {
		literalWeight += r.WeightValue()
		if !ranked[i] {
			otherContribution += r.ContributionValue()
		}
	}

	otherWeight := decimal.NewFromInt(1).Sub(rankedWeight).InexactFloat64()
	out.Other = domain.RankedRow{
		Ticker:       domain.OtherHoldingsLabel,
		Weight:       otherWeight,
		Return:       SafeDivide(otherContribution, otherWeight),
		Contribution: otherContribution,
	}

	totalContribution := rankedContribution + otherContribution
	out.Total = domain.RankedRow{
		Ticker:       domain.TotalPortfolioLabel,
		Weight:       1,
		Return:       totalContribution,
		Contribution: totalContribution,
	}

	if len(results) > 0 {
		if w := domain.CheckWeightSum("bucket "+out.Bucket.Label(), literalWeight); w != nil {
			out.Warnings = append(out.Warnings, *w)
		}
	}

	return out
}

// RankAll ranks every bucket found in results, in bucket order
func RankAll(results []domain.BucketResult, topN int) []domain.RankingOutput {
	order, byBucket := GroupByBucket(results)
	out := make([]domain.RankingOutput, 0, len(order))
	for _, b := range order {
		out = append(out, RankContributors(byBucket[b], topN))
	}
	return out
}

func rankedRow(r domain.BucketResult) domain.RankedRow {
	return domain.RankedRow{
		Ticker:       r.Ticker,
		Weight:       r.WeightValue(),
		Return:       r.ReturnValue(),
		Contribution: r.ContributionValue(),
	}
}
