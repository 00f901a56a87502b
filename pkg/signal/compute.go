package signal

import (
	"math"

	"github.com/scour-engine/scour/pkg/pattern"
)

// IdfSum sums the smoothed-Okapi IDF (pkg/pattern's bm25Score IDF term) of
// every term that has postings in idx. It backs the IdfSum* coverage
// signals (§4.5): terms absent from idx contribute zero rather than a
// penalty, so a document is never punished for what it doesn't contain.
func IdfSum(idx pattern.FieldIndex, terms []string) float64 {
	n := float64(idx.TotalDocs())
	if n <= 0 {
		return 0
	}
	var sum float64
	for _, t := range terms {
		df := float64(idx.DocFreq(t))
		if df <= 0 {
			continue
		}
		sum += idfSmoothed(n, df)
	}
	return sum
}

// CoverageRatio is the fraction of terms present anywhere in doc's field
// (TitleCoverage / CleanBodyCoverage, §4.5): 1.0 when every term occurs,
// 0.0 when none do.
func CoverageRatio(idx pattern.FieldIndex, terms []string, doc pattern.DocID) float64 {
	if len(terms) == 0 {
		return 0
	}
	hit := 0
	for _, t := range terms {
		for _, p := range idx.Postings(t) {
			if p.Doc == doc {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(terms))
}

// idfSmoothed mirrors pkg/pattern's smoothed Okapi IDF exactly, so
// IdfSum-family signals and BM25 scoring agree on what "rare" means.
func idfSmoothed(totalDocs, docFreq float64) float64 {
	return math.Log(1 + (totalDocs-docFreq+0.5)/(docFreq+0.5))
}

// NonText bundles the per-document facts that back the non-text signal
// table. All fields are raw values; Compute applies the §4.5 transforms.
type NonText struct {
	HostRank         float64 // 0-based rank among hosts by centrality
	HostCentrality   float64
	PageRank         float64 // 0-based rank among pages by centrality
	PageCentrality   float64
	IsHomepage       bool
	FetchTimeMs      float64
	HoursSinceUpdate float64
	TrackerCount     float64
	Region           string
	UrlDigitCount    float64
	UrlSlashCount    float64
	LinkDensity      float64
	HasAds           bool
}

// Compute applies the §4.5 monotone transforms to doc and returns the
// resulting non-text Values, ready to merge with the text signals computed
// separately from pkg/pattern matches and feed to Score.
func (doc NonText) Compute(rc *RegionCounter, selectedRegion string) Values {
	v := Values{
		HostCentrality:     doc.HostCentrality,
		HostCentralityRank: ScoreRank(doc.HostRank),
		PageCentrality:     doc.PageCentrality,
		PageCentralityRank: ScoreRank(doc.PageRank),
		FetchTimeMs:        doc.FetchTimeMs,
		UpdateTimestamp:    ScoreTimestamp(doc.HoursSinceUpdate),
		TrackerScore:       ScoreReciprocal(doc.TrackerCount),
		Region:             ScoreRegion(rc, doc.Region, selectedRegion),
		UrlDigits:          ScoreReciprocal(doc.UrlDigitCount),
		UrlSlashes:         ScoreReciprocal(doc.UrlSlashCount),
		LinkDensity:        ScoreLinkDensity(doc.LinkDensity),
	}
	if doc.IsHomepage {
		v[IsHomepage] = 1
	}
	if doc.HasAds {
		v[HasAds] = 1
	}
	return v
}
