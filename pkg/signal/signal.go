// Package signal implements the closed ranking-signal enumeration (§4.5):
// per-signal default coefficients, the monotone score transforms, and the
// coefficient-weighted aggregation that turns a document's raw signal
// values into a single ranking score.
//
// The coefficient table mirrors the newer of two signal tables carried by
// the retrieval pack (the one with Bm25F/TitleCoverage/CleanBodyCoverage/
// HasAds — see DESIGN.md's "newer table" resolution); the older table was
// superseded and is not reproduced here.
package signal

// Signal identifies one member of the closed ranking-signal enumeration.
type Signal int

const (
	// Text signals, evaluated per indexed text field via positional/fieldnorm
	// readers (pkg/pattern.Pattern.Match / MatchFastPath).
	Bm25F Signal = iota
	Bm25Title
	TitleCoverage
	Bm25TitleBigrams
	Bm25TitleTrigrams
	Bm25CleanBody
	CleanBodyCoverage
	Bm25CleanBodyBigrams
	Bm25CleanBodyTrigrams
	Bm25StemmedTitle
	Bm25StemmedCleanBody
	Bm25AllBody
	Bm25Keywords
	Bm25BacklinkText
	IdfSumURL
	IdfSumSite
	IdfSumDomain
	IdfSumSiteNoTokenizer
	IdfSumDomainNoTokenizer
	IdfSumDomainNameNoTokenizer
	IdfSumDomainIfHomepage
	IdfSumDomainNameIfHomepageNoTokenizer
	IdfSumDomainIfHomepageNoTokenizer
	IdfSumTitleIfHomepage

	// Non-text signals, evaluated via columnar readers or precomputed at
	// index time.
	HostCentrality
	HostCentralityRank
	PageCentrality
	PageCentralityRank
	IsHomepage
	FetchTimeMs
	UpdateTimestamp
	TrackerScore
	Region
	UrlDigits
	UrlSlashes
	LinkDensity
	HasAds

	// Reranker slots: populated only when a reranking stage runs
	// (pkg/ranking.ReRanker), zero-valued (and hence inert) otherwise.
	CrossEncoderSnippet
	CrossEncoderTitle
	TitleEmbeddingSimilarity
	KeywordEmbeddingSimilarity
	LambdaMart
	InboundSimilarity
	QueryCentrality

	numSignals
)

// name is indexed by Signal for String() and optic Ranking(Signal("...")) lookups.
var name = [numSignals]string{
	Bm25F:                      "bm25f",
	Bm25Title:                  "bm25_title",
	TitleCoverage:              "title_coverage",
	Bm25TitleBigrams:           "bm25_title_bigrams",
	Bm25TitleTrigrams:          "bm25_title_trigrams",
	Bm25CleanBody:              "bm25_clean_body",
	CleanBodyCoverage:          "clean_body_coverage",
	Bm25CleanBodyBigrams:       "bm25_clean_body_bigrams",
	Bm25CleanBodyTrigrams:      "bm25_clean_body_trigrams",
	Bm25StemmedTitle:           "bm25_stemmed_title",
	Bm25StemmedCleanBody:       "bm25_stemmed_clean_body",
	Bm25AllBody:                "bm25_all_body",
	Bm25Keywords:               "bm25_keywords",
	Bm25BacklinkText:           "bm25_backlink_text",
	IdfSumURL:                  "idf_sum_url",
	IdfSumSite:                 "idf_sum_site",
	IdfSumDomain:               "idf_sum_domain",
	IdfSumSiteNoTokenizer:      "idf_sum_site_no_tokenizer",
	IdfSumDomainNoTokenizer:    "idf_sum_domain_no_tokenizer",
	IdfSumDomainNameNoTokenizer:            "idf_sum_domain_name_no_tokenizer",
	IdfSumDomainIfHomepage:                 "idf_sum_domain_if_homepage",
	IdfSumDomainNameIfHomepageNoTokenizer:  "idf_sum_domain_name_if_homepage_no_tokenizer",
	IdfSumDomainIfHomepageNoTokenizer:      "idf_sum_domain_if_homepage_no_tokenizer",
	IdfSumTitleIfHomepage:                  "idf_sum_title_if_homepage",
	HostCentrality:             "host_centrality",
	HostCentralityRank:         "host_centrality_rank",
	PageCentrality:             "page_centrality",
	PageCentralityRank:         "page_centrality_rank",
	IsHomepage:                 "is_homepage",
	FetchTimeMs:                "fetch_time_ms",
	UpdateTimestamp:            "update_timestamp",
	TrackerScore:               "tracker_score",
	Region:                     "region",
	UrlDigits:                  "url_digits",
	UrlSlashes:                 "url_slashes",
	LinkDensity:                "link_density",
	HasAds:                     "has_ads",
	CrossEncoderSnippet:        "cross_encoder_snippet",
	CrossEncoderTitle:          "cross_encoder_title",
	TitleEmbeddingSimilarity:   "title_embedding_similarity",
	KeywordEmbeddingSimilarity: "keyword_embedding_similarity",
	LambdaMart:                 "lambdamart",
	InboundSimilarity:          "inbound_similarity",
	QueryCentrality:            "query_centrality",
}

func (s Signal) String() string {
	if s < 0 || s >= numSignals {
		return "unknown"
	}
	return name[s]
}

// ByName resolves the name an Optic's Ranking(Signal("...")) clause carries
// back to its Signal. Unknown names return (0, false).
func ByName(n string) (Signal, bool) {
	for i, v := range name {
		if v == n {
			return Signal(i), true
		}
	}
	return 0, false
}

// defaultCoefficient is the newer table's per-signal weight (§4.5), indexed
// by Signal. Values for the four reranker embedding/cross-encoder slots
// have no dedicated default in the retrieval pack (they are driven
// entirely by pkg/ranking.ReRanker when that stage is enabled) and are set
// to 1.0 so a running cross-encoder is not silently zeroed out.
var defaultCoefficient = [numSignals]float64{
	Bm25F:                      0.1,
	Bm25Title:                  0.0063,
	TitleCoverage:              0.01,
	Bm25TitleBigrams:           0.005,
	Bm25TitleTrigrams:          0.005,
	Bm25CleanBody:              0.005,
	CleanBodyCoverage:          0.01,
	Bm25CleanBodyBigrams:       0.005,
	Bm25CleanBodyTrigrams:      0.005,
	Bm25StemmedTitle:           0.003,
	Bm25StemmedCleanBody:       0.001,
	Bm25AllBody:                0.0,
	Bm25Keywords:               0.001,
	Bm25BacklinkText:           0.003,
	IdfSumURL:                  0.0006,
	IdfSumSite:                 0.00015,
	IdfSumDomain:               0.0003,
	IdfSumSiteNoTokenizer:                 0.00015,
	IdfSumDomainNoTokenizer:               0.0036,
	IdfSumDomainNameNoTokenizer:           0.0002,
	IdfSumDomainIfHomepage:                0.0004,
	IdfSumDomainNameIfHomepageNoTokenizer: 0.0036,
	IdfSumDomainIfHomepageNoTokenizer:     0.0036,
	IdfSumTitleIfHomepage:                 0.001,
	HostCentrality:             2.0,
	HostCentralityRank:         0.02,
	PageCentrality:             2.0,
	PageCentralityRank:         0.02,
	IsHomepage:                 0.01,
	FetchTimeMs:                0.001,
	UpdateTimestamp:            0.001,
	TrackerScore:               0.1,
	Region:                     0.15,
	UrlDigits:                  0.01,
	UrlSlashes:                 0.1,
	LinkDensity:                0.0,
	HasAds:                     0.01,
	CrossEncoderSnippet:        1.0,
	CrossEncoderTitle:          1.0,
	TitleEmbeddingSimilarity:   1.0,
	KeywordEmbeddingSimilarity: 1.0,
	LambdaMart:                 10.0,
	InboundSimilarity:          0.25,
	QueryCentrality:            0.0,
}

// DefaultCoefficient returns s's coefficient absent any optic override.
func DefaultCoefficient(s Signal) float64 {
	if s < 0 || s >= numSignals {
		return 0
	}
	return defaultCoefficient[s]
}

// Coefficients is a mutable coefficient table, seeded from the defaults and
// overridden per-query by an Optic's Ranking() clauses (§4.4).
type Coefficients struct {
	values [numSignals]float64
}

// DefaultCoefficients returns a Coefficients table seeded with every
// signal's default weight.
func DefaultCoefficients() *Coefficients {
	c := &Coefficients{}
	copy(c.values[:], defaultCoefficient[:])
	return c
}

// Set overrides s's coefficient, e.g. from an optic Ranking(Signal(name), score) clause.
func (c *Coefficients) Set(s Signal, weight float64) {
	if s < 0 || s >= numSignals {
		return
	}
	c.values[s] = weight
}

// Get returns s's current coefficient.
func (c *Coefficients) Get(s Signal) float64 {
	if s < 0 || s >= numSignals {
		return 0
	}
	return c.values[s]
}

// Values is a sparse map of raw (untransformed, un-weighted) signal values
// for one document, as produced by the text/non-text compute functions.
type Values map[Signal]float64

// Score computes the coefficient-weighted sum of vals under coeffs (§4.5).
// If coeffs carries a non-zero LambdaMart weight and vals holds a
// LambdaMart value (the model's raw prediction), that term replaces the
// linear combination entirely, per spec: the LambdaMART stage, when
// enabled, supersedes rather than joins the signal sum.
func Score(vals Values, coeffs *Coefficients) float64 {
	if lm, ok := vals[LambdaMart]; ok {
		if w := coeffs.Get(LambdaMart); w != 0 {
			return w * lm
		}
	}
	var sum float64
	for s, v := range vals {
		sum += coeffs.Get(s) * v
	}
	return sum
}
