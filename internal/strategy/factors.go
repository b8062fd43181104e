package strategy

import (
	"fmt"

	"WickSentinel/internal/model"
)

// factor builds a binary FactorScore: raw 1 when present, 0 otherwise.
func factor(name string, present bool, weight float64, commentary string) model.FactorScore {
	raw := 0.0
	if present {
		raw = 1
	}
	return model.FactorScore{
		Name:       name,
		RawScore:   raw,
		Weight:     weight,
		Weighted:   raw * weight,
		Commentary: commentary,
	}
}

func scoreRejectionBlock(rb model.RejectionBlock, weight float64) model.FactorScore {
	return factor("rejection_block", true, weight,
		fmt.Sprintf("%s wick %.2f-%.2f", rb.Direction, rb.WickLow, rb.WickHigh))
}

// scoreConfluences adds one factor per distinct confluence kind.
func scoreConfluences(rb model.RejectionBlock, w weightsByKind) []model.FactorScore {
	var out []model.FactorScore
	for _, kind := range rb.Kinds() {
		n := 0
		for _, c := range rb.Confluences {
			if c.Kind == kind {
				n++
			}
		}
		out = append(out, factor(string(kind), true, w[kind], fmt.Sprintf("%d reference(s)", n)))
	}
	return out
}

// scoreHTF never excludes; misalignment simply adds nothing.
func scoreHTF(tf model.Timeframe, bias model.Bias, dir model.Direction, weight float64, neutralAligned bool) model.FactorScore {
	aligned := bias.Aligned(dir) || (neutralAligned && bias == model.BiasNeutral)
	return factor("htf_"+string(tf), aligned, weight, string(bias))
}

func scoreKillzone(kz model.Killzone, weight float64) model.FactorScore {
	return factor("killzone", kz != "", weight, string(kz))
}

func scoreWickRespect(respect model.WickRespect, weight float64) model.FactorScore {
	return factor("wick_respect", respect == model.WickRespected, weight, string(respect))
}

func totalScore(factors []model.FactorScore) float64 {
	var total float64
	for _, f := range factors {
		total += f.Weighted
	}
	return total
}
