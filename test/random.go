package test

import (
	"math"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/onsi/ginkgo/v2"
)

var (
	Source = rand.NewSource(ginkgo.GinkgoRandomSeed())
	Faker  = faker.NewWithSeed(Source)
	Rand   = rand.New(Source)
)

// RandomFloat returns a value in [min, max) rounded to two decimals, the precision readings are stored with.
func RandomFloat(min, max float64) float64 {
	return math.Round((min+Rand.Float64()*(max-min))*100) / 100
}

// RandomTimeBefore returns a time within the window preceding t, truncated to the second.
func RandomTimeBefore(t time.Time, window time.Duration) time.Time {
	offset := time.Duration(Rand.Int63n(int64(window)))
	return t.Add(-offset).Truncate(time.Second)
}
