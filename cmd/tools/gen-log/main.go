// Command gen-log generates a synthetic telemetry log for testing the
// renderer without a robot.
//
// The robot drives a figure eight across the field with a ghost running
// half a second ahead. The log also carries a one-lap autonomous
// trajectory, two fixed vision targets, an enabled toggle, and an
// alliance flag.
//
// Usage:
//
//	go run ./cmd/tools/gen-log [flags]
//
// Flags:
//
//	-out       Output sqlite path (default: telemetry.db)
//	-duration  Log duration in seconds (default: 30)
//	-hz        Pose sample rate (default: 50)
//	-red       Log a red alliance
package main

import (
	"flag"
	"log"
	"math"
	"os"
	"strings"

	"github.com/jwbonner/advantagescope/internal/tslog"
)

// Figure-eight geometry: a Gerono lemniscate centered on the field.
const (
	centerX    = 8.27
	centerY    = 4.105
	amplitudeX = 5.0
	amplitudeY = 2.5
	lapSeconds = 12.0
	ghostLead  = 0.5
)

// poseAt returns the figure-eight pose at time t, heading along the
// velocity.
func poseAt(t float64) (x, y, heading float64) {
	theta := 2 * math.Pi * t / lapSeconds
	x = centerX + amplitudeX*math.Sin(theta)
	y = centerY + amplitudeY*math.Sin(theta)*math.Cos(theta)
	vx := amplitudeX * math.Cos(theta)
	vy := amplitudeY * math.Cos(2*theta)
	heading = math.Atan2(vy, vx)
	return
}

func mustAppend(l *tslog.SQLiteLog, key string, s tslog.Sample) {
	if err := l.Append(key, s); err != nil {
		log.Fatalf("append %s: %v", key, err)
	}
}

func main() {
	out := flag.String("out", "telemetry.db", "output sqlite path")
	duration := flag.Float64("duration", 30, "log duration in seconds")
	hz := flag.Float64("hz", 50, "pose sample rate")
	red := flag.Bool("red", false, "log a red alliance")
	flag.Parse()

	if *duration <= 0 || *hz <= 0 {
		log.Fatal("duration and hz must be positive")
	}

	// Regenerate from scratch.
	os.Remove(*out)

	tlog, err := tslog.OpenSQLiteLog(*out)
	if err != nil {
		log.Fatalf("open %s: %v", *out, err)
	}
	defer tlog.Close()

	alliance := 0.0
	if *red {
		alliance = 1
	}
	mustAppend(tlog, "/ds/alliance", tslog.Sample{Timestamp: 0, Values: []float64{alliance}})

	mustAppend(tlog, "/ds/enabled", tslog.Sample{Timestamp: 0, Values: []float64{0}})
	mustAppend(tlog, "/ds/enabled", tslog.Sample{Timestamp: 1, Values: []float64{1}})
	if *duration > 2 {
		mustAppend(tlog, "/ds/enabled", tslog.Sample{Timestamp: *duration - 1, Values: []float64{0}})
	}

	// The autonomous trajectory is one full lap, logged once up front.
	var path []float64
	for ts := 0.0; ts <= lapSeconds; ts += 0.25 {
		x, y, h := poseAt(ts)
		path = append(path, x, y, h)
	}
	mustAppend(tlog, "/auto/trajectory", tslog.Sample{Timestamp: 0, Values: path})

	for ts := 0.0; ts <= *duration; ts++ {
		mustAppend(tlog, "/vision/targets", tslog.Sample{Timestamp: ts, Values: []float64{
			1.2, 5.5, 0,
			15.3, 2.7, math.Pi,
		}})
	}

	steps := int(*duration * *hz)
	for i := 0; i <= steps; i++ {
		t := float64(i) / *hz
		x, y, h := poseAt(t)
		mustAppend(tlog, "/robot/pose", tslog.Sample{Timestamp: t, Values: []float64{x, y, h}})

		gx, gy, gh := poseAt(t + ghostLead)
		mustAppend(tlog, "/robot/ghost", tslog.Sample{Timestamp: t, Values: []float64{gx, gy, gh}})

		if steps >= 10 && i > 0 && i%(steps/10) == 0 {
			log.Printf("%d/%d pose samples", i, steps)
		}
	}

	keys, err := tlog.Keys()
	if err != nil {
		log.Fatalf("list keys: %v", err)
	}
	log.Printf("✓ Created: %s (%.0f seconds at %.0f Hz, keys: %s)",
		*out, *duration, *hz, strings.Join(keys, " "))
}
