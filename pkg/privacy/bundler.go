package privacy

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/verdict"
)

// BundleRecord is a redacted, generalized copy of one precedent. It carries
// no direct identifiers; the quasi-identifier signature is derived from the
// Generalized attributes.
type BundleRecord struct {
	// Verdict is the finalized decision (the shared payload, not a
	// quasi-identifier).
	Verdict verdict.Verdict `json:"verdict"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// Generalized maps quasi-identifier attribute names to their
	// generalized values (date, location, age).
	Generalized map[string]string `json:"generalized"`

	// Redacted maps redacted field names to the placeholder.
	Redacted map[string]string `json:"redacted,omitempty"`
}

// Signature is the generalized quasi-identifier signature used for
// k-anonymity grouping.
func (r *BundleRecord) Signature() string {
	keys := make([]string, 0, len(r.Generalized))
	for k := range r.Generalized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Generalized[k])
	}
	return b.String()
}

// AnonymousBundle is a disposable k-anonymous view over a snapshot of stored
// precedents.
type AnonymousBundle struct {
	// BundleID identifies the bundle.
	BundleID string `json:"bundle_id"`

	// K is the anonymity parameter the bundle was built with.
	K int `json:"k"`

	// Records are the redacted, generalized precedent copies.
	Records []*BundleRecord `json:"precedents"`

	// GeneralizedAttributes lists the quasi-identifier attributes that
	// were generalized.
	GeneralizedAttributes []string `json:"generalized_attributes"`

	// RedactedFields lists the sensitive fields replaced by the
	// placeholder.
	RedactedFields []string `json:"redacted_fields"`
}

// BundlerConfig contains tunables for bundle construction.
type BundlerConfig struct {
	// RedactedFields are the context fields replaced by the placeholder.
	// "input_text" redacts the precedent input itself.
	// Default: ["input_text", "user_id", "email"]
	RedactedFields []string `yaml:"redacted_fields"`

	// AgeRangeSize is the width of the generalized age buckets in years.
	// Default: 10
	AgeRangeSize int `yaml:"age_range_size"`

	// LocationKey and AgeKey name the context attributes holding the
	// location and age quasi-identifiers.
	// Defaults: "location", "age"
	LocationKey string `yaml:"location_key"`
	AgeKey      string `yaml:"age_key"`
}

// DefaultBundlerConfig returns the default bundler configuration.
func DefaultBundlerConfig() *BundlerConfig {
	return &BundlerConfig{
		RedactedFields: []string{"input_text", "user_id", "email"},
		AgeRangeSize:   10,
		LocationKey:    "location",
		AgeKey:         "age",
	}
}

// Bundler builds k-anonymous bundles from precedent snapshots.
type Bundler struct {
	config *BundlerConfig
	logger *slog.Logger
}

// NewBundler creates a bundler with the given configuration.
func NewBundler(config *BundlerConfig, logger *slog.Logger) *Bundler {
	if config == nil {
		config = DefaultBundlerConfig()
	}
	if logger == nil {
		logger = slog.Default().With("component", "privacy.bundler")
	}
	return &Bundler{config: config, logger: logger}
}

// CreateAnonymousBundle builds a k-anonymous bundle from a snapshot of
// precedents. The originals are never mutated. Fails with
// *InsufficientDataError when fewer than k precedents are supplied.
func (b *Bundler) CreateAnonymousBundle(precedents []*precedent.Precedent, k int) (*AnonymousBundle, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if len(precedents) < k {
		return nil, &InsufficientDataError{Have: len(precedents), K: k}
	}

	records := make([]*BundleRecord, 0, len(precedents))
	for _, p := range precedents {
		records = append(records, b.generalizeRecord(p))
	}

	clusters := b.cluster(records, k)

	// Suppress attributes that are not uniform within a cluster so every
	// record in the cluster shares one signature.
	for _, cluster := range clusters {
		unifyCluster(cluster)
	}

	bundle := &AnonymousBundle{
		BundleID:              uuid.NewString(),
		K:                     k,
		GeneralizedAttributes: []string{AttrDate, AttrLocation, AttrAge},
		RedactedFields:        append([]string(nil), b.config.RedactedFields...),
	}
	for _, cluster := range clusters {
		if len(cluster) < k {
			b.logger.Warn("bundle cluster below k after merging",
				"cluster_size", len(cluster),
				"k", k,
			)
		}
		bundle.Records = append(bundle.Records, cluster...)
	}

	return bundle, nil
}

// VerifyKAnonymity regroups the bundle by generalized quasi-identifier
// signature and reports whether every group has at least bundle.K members.
// It derives the guarantee from the bundle contents, so it is valid on any
// already-built bundle, not only freshly constructed ones.
func (b *Bundler) VerifyKAnonymity(bundle *AnonymousBundle) bool {
	if bundle == nil || bundle.K < 1 || len(bundle.Records) == 0 {
		return false
	}

	groups := map[string]int{}
	for _, r := range bundle.Records {
		groups[r.Signature()]++
	}
	for _, n := range groups {
		if n < bundle.K {
			return false
		}
	}
	return true
}

// generalizeRecord builds the redacted, generalized copy of one precedent.
func (b *Bundler) generalizeRecord(p *precedent.Precedent) *BundleRecord {
	r := &BundleRecord{
		Verdict:    p.Verdict,
		Confidence: p.Confidence,
		Generalized: map[string]string{
			AttrDate:     generalizeDate(p.Timestamp),
			AttrLocation: generalizeLocation(p.Context[b.config.LocationKey]),
			AttrAge:      generalizeAge(p.Context[b.config.AgeKey], b.config.AgeRangeSize),
		},
		Redacted: map[string]string{},
	}
	for _, field := range b.config.RedactedFields {
		if field == "input_text" || p.Context[field] != "" {
			r.Redacted[field] = Placeholder
		}
	}
	return r
}

// cluster groups records by verdict and chunks each group into clusters of
// size >= k. Undersized remainders merge into the preceding cluster;
// verdict groups smaller than k merge into the largest existing cluster.
func (b *Bundler) cluster(records []*BundleRecord, k int) [][]*BundleRecord {
	byVerdict := map[verdict.Verdict][]*BundleRecord{}
	for _, r := range records {
		byVerdict[r.Verdict] = append(byVerdict[r.Verdict], r)
	}

	// Deterministic verdict order.
	verdicts := make([]verdict.Verdict, 0, len(byVerdict))
	for v := range byVerdict {
		verdicts = append(verdicts, v)
	}
	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i] < verdicts[j] })

	var clusters [][]*BundleRecord
	var undersized []*BundleRecord

	for _, v := range verdicts {
		group := byVerdict[v]
		if len(group) < k {
			// Too small to stand alone within its verdict.
			undersized = append(undersized, group...)
			continue
		}
		for start := 0; start < len(group); start += k {
			end := start + k
			if len(group)-end < k {
				// Merge the undersized remainder into this cluster.
				end = len(group)
			}
			// Clusters grow later when undersized groups merge in, so each
			// needs its own backing array, not a window into the group.
			clusters = append(clusters, append([]*BundleRecord(nil), group[start:end]...))
			if end == len(group) {
				break
			}
		}
	}

	if len(undersized) > 0 {
		if len(clusters) == 0 {
			clusters = append(clusters, undersized)
		} else {
			// Nearest available cluster: the largest one absorbs the rest.
			largest := 0
			for i := range clusters {
				if len(clusters[i]) > len(clusters[largest]) {
					largest = i
				}
			}
			clusters[largest] = append(clusters[largest], undersized...)
		}
	}

	return clusters
}

// unifyCluster suppresses quasi-identifier attributes that differ across the
// cluster's records, leaving all members with an identical signature.
func unifyCluster(cluster []*BundleRecord) {
	if len(cluster) < 2 {
		return
	}
	for attr := range cluster[0].Generalized {
		uniform := true
		first := cluster[0].Generalized[attr]
		for _, r := range cluster[1:] {
			if r.Generalized[attr] != first {
				uniform = false
				break
			}
		}
		if !uniform {
			for _, r := range cluster {
				r.Generalized[attr] = Suppressed
			}
		}
	}
}
