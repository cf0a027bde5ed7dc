// ABOUTME: Mutable sample cluster used while a builder pass is running.
// ABOUTME: A cluster always holds at least one sample, so its range is always defined.
package sleep

import (
	"bytes"
	"time"

	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/ordered"
)

// sampleLess orders by start time, then by ID so equal starts are deterministic.
func sampleLess(a, b models.Sample) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

type cluster struct {
	samples *ordered.Collection[models.Sample]
	end     time.Time
}

func newCluster(first models.Sample) *cluster {
	c := &cluster{samples: ordered.New(sampleLess)}
	c.add(first)
	return c
}

// timeRange spans the earliest start to the latest end. The latest end is
// tracked separately because a long early sample can outlast later ones.
func (c *cluster) timeRange() models.TimeRange {
	return models.TimeRange{Start: c.samples.First().Start, End: c.end}
}

func (c *cluster) add(s models.Sample) {
	c.samples.Insert(s)
	if c.samples.Len() == 1 || s.End.After(c.end) {
		c.end = s.End
	}
}

func (c *cluster) absorb(o *cluster) {
	for _, s := range o.samples.Items() {
		c.add(s)
	}
}

func clusterLess(a, b *cluster) bool {
	ar, br := a.timeRange(), b.timeRange()
	if !ar.Start.Equal(br.Start) {
		return ar.Start.Before(br.Start)
	}
	return ar.End.Before(br.End)
}
