package service

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// NoRatingDisplay is shown for users with zero reviews regardless of any
// stored average.
const NoRatingDisplay = "No rating"

// StarRating is the 5-star rendering of a 1-10 average.
type StarRating struct {
	Full  int
	Half  int
	Empty int
}

// Stars maps an average rating on the 1-10 scale to a 5-star display:
// half the average, with a half star when the fraction reaches 0.5.
func Stars(avg float64) StarRating {
	if avg < 0 {
		avg = 0
	}
	if avg > 10 {
		avg = 10
	}
	scaled := avg / 2
	full := int(math.Floor(scaled))
	half := 0
	if scaled-float64(full) >= 0.5 {
		half = 1
	}
	if full >= 5 {
		full, half = 5, 0
	}
	return StarRating{Full: full, Half: half, Empty: 5 - full - half}
}

// StarDisplay renders the aggregate as text. Zero reviews yields the
// no-rating sentinel.
func StarDisplay(avg float64, count int) string {
	if count == 0 {
		return NoRatingDisplay
	}
	s := Stars(avg)
	var b strings.Builder
	b.WriteString(strings.Repeat("★", s.Full))
	if s.Half == 1 {
		b.WriteString("⯪")
	}
	b.WriteString(strings.Repeat("☆", s.Empty))
	return fmt.Sprintf("%s (%.1f/10)", b.String(), avg)
}

// Tone buckets for the flavor line accompanying a rating display.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneBad
)

// ToneFor selects the pool for an average rating. Boundaries are inclusive:
// 7.0 is good, 4.0 is bad.
func ToneFor(avg float64) Tone {
	switch {
	case avg >= 7.0:
		return ToneGood
	case avg <= 4.0:
		return ToneBad
	default:
		return ToneNeutral
	}
}

// TonePools holds the flavor lines per tone. Content is supplied externally;
// only the selection thresholds are part of the contract.
type TonePools struct {
	Good    []string
	Bad     []string
	Neutral []string
}

// Pick returns a uniformly random line from the pool matching avg. randFn
// must return a value in [0, n).
func (p TonePools) Pick(avg float64, randFn func(n int) int) string {
	pool := p.Neutral
	switch ToneFor(avg) {
	case ToneGood:
		pool = p.Good
	case ToneBad:
		pool = p.Bad
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[randFn(len(pool))]
}

var defaultTonePools = TonePools{
	Good:    []string{"Trusted seller, buy with confidence."},
	Bad:     []string{"Tread carefully with this one."},
	Neutral: []string{"Damn, get your rep up!"},
}

// LoadTonePools reads good.txt, bad.txt and neutral.txt from dir, one line
// per entry. Missing files fall back to a built-in single-line pool.
func LoadTonePools(dir string, logger *zap.Logger) TonePools {
	if logger == nil {
		logger = zap.NewNop()
	}
	load := func(name string, fallback []string) []string {
		lines, err := readLines(filepath.Join(dir, name))
		if err != nil || len(lines) == 0 {
			logger.Debug("tone pool fallback", zap.String("file", name), zap.Error(err))
			return fallback
		}
		return lines
	}
	return TonePools{
		Good:    load("good.txt", defaultTonePools.Good),
		Bad:     load("bad.txt", defaultTonePools.Bad),
		Neutral: load("neutral.txt", defaultTonePools.Neutral),
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
