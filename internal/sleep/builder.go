// ABOUTME: Segments sleep analysis samples into sessions by merging nearby intervals.
// ABOUTME: Clusters are kept in an ordered collection and merged with neighbours as ranges grow.
package sleep

import (
	"sort"
	"time"

	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/ordered"
)

// DefaultMaxDistance is the largest gap between samples of one session.
const DefaultMaxDistance = 60 * time.Minute

// Builder turns sleep samples into sessions.
type Builder struct {
	// MaxDistance is the largest gap between two samples that still belong
	// to the same session. A gap of exactly MaxDistance merges.
	MaxDistance time.Duration

	// Mode selects how per-phase totals are computed.
	Mode TotalTimeMode
}

// NewBuilder returns a builder with a 60 minute threshold and union totals.
func NewBuilder() Builder {
	return Builder{MaxDistance: DefaultMaxDistance, Mode: TotalTimeUnion}
}

// Build validates every sample, groups them by source and segments each
// source independently. Sessions are returned ordered by start, then source.
func (b Builder) Build(samples []models.Sample) ([]Session, error) {
	if err := validate(samples); err != nil {
		return nil, err
	}

	groups := make(map[string][]models.Sample)
	for _, s := range samples {
		groups[s.Source] = append(groups[s.Source], s)
	}
	sources := make([]string, 0, len(groups))
	for src := range groups {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var sessions []Session
	for _, src := range sources {
		sessions = append(sessions, b.segment(src, groups[src])...)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].Start().Equal(sessions[j].Start()) {
			return sessions[i].Start().Before(sessions[j].Start())
		}
		return sessions[i].Source() < sessions[j].Source()
	})
	return sessions, nil
}

// BuildSource segments samples that all come from one source.
func (b Builder) BuildSource(samples []models.Sample) ([]Session, error) {
	if err := validate(samples); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	src := samples[0].Source
	for _, s := range samples[1:] {
		if s.Source != src {
			return nil, ErrMixedSources
		}
	}
	return b.segment(src, samples), nil
}

func (b Builder) segment(source string, samples []models.Sample) []Session {
	sorted := make([]models.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sampleLess(sorted[i], sorted[j]) })

	clusters := ordered.New(clusterLess)
	for _, s := range sorted {
		b.place(clusters, s)
	}

	sessions := make([]Session, 0, clusters.Len())
	for _, c := range clusters.Items() {
		sessions = append(sessions, newSession(source, c, b.Mode))
	}
	return sessions
}

// place adds one sample, either to an existing cluster within reach or as
// a new cluster. Growing a cluster can bring its neighbours within reach,
// in which case they are folded in.
func (b Builder) place(clusters *ordered.Collection[*cluster], s models.Sample) {
	r := s.Range()
	hit := clusters.SearchFirst(func(c *cluster) int {
		return b.compare(c.timeRange(), r)
	})
	if !hit.Found {
		clusters.InsertAt(hit.Index, newCluster(s))
		return
	}

	i := hit.Index
	target := clusters.At(i)
	merged := target.timeRange().Union(r)
	mergePrev := i > 0 && b.reaches(clusters.At(i-1).timeRange(), merged)
	mergeNext := i+1 < clusters.Len() && b.reaches(clusters.At(i+1).timeRange(), merged)
	if !mergePrev && !mergeNext {
		target.add(s)
		return
	}

	clusters.Batch(func(u *ordered.Unchecked[*cluster]) {
		target.add(s)
		for i+1 < u.Len() && b.reaches(u.At(i+1).timeRange(), target.timeRange()) {
			target.absorb(u.RemoveAt(i + 1))
		}
		for i > 0 && b.reaches(u.At(i-1).timeRange(), target.timeRange()) {
			target.absorb(u.RemoveAt(i - 1))
			i--
		}
	})
}

// compare places cluster range c relative to sample range r widened by MaxDistance.
func (b Builder) compare(c, r models.TimeRange) int {
	reach := r.Expanded(b.MaxDistance)
	switch {
	case c.End.Before(reach.Start):
		return -1
	case c.Start.After(reach.End):
		return 1
	default:
		return 0
	}
}

func (b Builder) reaches(a, r models.TimeRange) bool {
	return a.Intersects(r.Expanded(b.MaxDistance))
}
