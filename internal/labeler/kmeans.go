// Package labeler tags listings with a market segment derived by k-means
// over price, size and price per square foot.
package labeler

import (
	"log/slog"
	"math"
	"sort"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// Segment names, cheapest first.
var segments = []string{"Value", "Mid-Range", "Premium", "Luxury"}

const (
	// General is used when there is too little data to cluster.
	General = "General"

	minListings   = 10
	maxIterations = 50
)

// KMeans assigns ClusterLabel in place.
type KMeans struct {
	k int
}

// New returns a labeler with one cluster per segment.
func New() *KMeans {
	return &KMeans{k: len(segments)}
}

type point struct {
	idx      int
	features [3]float64
	price    float64
}

// Label implements port.Labeler.
func (m *KMeans) Label(listings []domain.Listing) {
	var points []point
	for i := range listings {
		l := &listings[i]
		l.ClusterLabel = domain.String(General)
		ppsf, ok := l.PricePerSqft()
		if !ok {
			continue
		}
		points = append(points, point{idx: i, features: [3]float64{*l.Price, *l.SizeSqft, ppsf}, price: *l.Price})
	}
	if len(points) < minListings {
		slog.Debug("too few priced listings to cluster", "count", len(points))
		return
	}

	standardize(points)
	assign := m.cluster(points)

	// Rank clusters by mean price.
	sum := make([]float64, m.k)
	count := make([]int, m.k)
	for i, c := range assign {
		sum[c] += points[i].price
		count[c]++
	}
	order := make([]int, m.k)
	for c := range order {
		order[c] = c
	}
	mean := func(c int) float64 {
		if count[c] == 0 {
			return math.Inf(1)
		}
		return sum[c] / float64(count[c])
	}
	sort.SliceStable(order, func(a, b int) bool { return mean(order[a]) < mean(order[b]) })
	names := make([]string, m.k)
	for rank, c := range order {
		names[c] = segments[rank]
	}

	for i, c := range assign {
		listings[points[i].idx].ClusterLabel = domain.String(names[c])
	}
	slog.Debug("listings clustered", "count", len(points), "clusters", m.k)
}

// cluster runs Lloyd's algorithm seeded with points spread evenly by price.
func (m *KMeans) cluster(points []point) []int {
	byPrice := make([]int, len(points))
	for i := range byPrice {
		byPrice[i] = i
	}
	sort.SliceStable(byPrice, func(a, b int) bool { return points[byPrice[a]].price < points[byPrice[b]].price })

	centroids := make([][3]float64, m.k)
	for c := range centroids {
		centroids[c] = points[byPrice[(2*c+1)*len(points)/(2*m.k)]].features
	}

	assign := make([]int, len(points))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := distance(p.features, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][3]float64, m.k)
		counts := make([]int, m.k)
		for i, p := range points {
			c := assign[i]
			for f := range p.features {
				sums[c][f] += p.features[f]
			}
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for f := range centroids[c] {
				centroids[c][f] = sums[c][f] / float64(counts[c])
			}
		}
	}
	return assign
}

// standardize rescales each feature to zero mean and unit variance.
func standardize(points []point) {
	n := float64(len(points))
	for f := 0; f < 3; f++ {
		var mean float64
		for _, p := range points {
			mean += p.features[f]
		}
		mean /= n
		var variance float64
		for _, p := range points {
			d := p.features[f] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / n)
		for i := range points {
			if std == 0 {
				points[i].features[f] = 0
				continue
			}
			points[i].features[f] = (points[i].features[f] - mean) / std
		}
	}
}

func distance(a, b [3]float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}
