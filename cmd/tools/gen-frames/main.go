// Command gen-frames writes synthetic push-up frames as NDJSON for the
// -replay mode of the server and for fixtures.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/banshee-data/pushup.report/internal/pose"
	"github.com/banshee-data/pushup.report/internal/security"
)

type genOptions struct {
	Reps     int
	Steps    int // frames per half rep
	FPS      float64
	TopDeg   float64
	DepthDeg float64
	SagEvery int // every Nth rep is done with sagging hips; 0 disables
	Noise    float64
	Seed     uint64
	Camera   pose.Camera
	Start    time.Time
}

// elbowAt is a cosine ease between the top and depth angles; phase runs over
// [0, 1) for one full rep.
func elbowAt(o genOptions, phase float64) float64 {
	mid := (o.TopDeg + o.DepthDeg) / 2
	amp := (o.TopDeg - o.DepthDeg) / 2
	return mid + amp*math.Cos(2*math.Pi*phase)
}

func generate(w io.Writer, o genOptions) (int, error) {
	if o.Reps <= 0 || o.Steps <= 0 || o.FPS <= 0 {
		return 0, fmt.Errorf("reps, steps and fps must be positive")
	}
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	jitter := func() float64 {
		if o.Noise == 0 {
			return 0
		}
		return rng.NormFloat64() * o.Noise
	}

	enc := json.NewEncoder(w)
	frameDur := time.Duration(float64(time.Second) / o.FPS)
	perRep := 2 * o.Steps
	var seq uint64
	for rep := 0; rep < o.Reps; rep++ {
		hip := 172.0
		if o.SagEvery > 0 && (rep+1)%o.SagEvery == 0 {
			hip = 105
		}
		for i := 0; i < perRep; i++ {
			elbow := elbowAt(o, float64(i)/float64(perRep))
			p := pose.Synthesize(pose.SyntheticAngles{
				Hip:        hip + jitter(),
				Knee:       176 + jitter(),
				RightElbow: elbow + jitter(),
				LeftElbow:  elbow + jitter(),
			})
			f := pose.Frame{
				Seq:       seq,
				Timestamp: o.Start.Add(time.Duration(seq) * frameDur),
				Width:     640,
				Height:    480,
				Camera:    o.Camera,
				Poses:     []pose.Pose{p},
			}
			if err := enc.Encode(f); err != nil {
				return int(seq), err
			}
			seq++
		}
	}
	return int(seq), nil
}

func main() {
	output := flag.String("o", "frames.ndjson", "output path")
	reps := flag.Int("reps", 10, "number of push-ups")
	steps := flag.Int("steps", 8, "frames per half rep")
	fps := flag.Float64("fps", 15, "frames per second for timestamps")
	sag := flag.Int("sag-every", 0, "do every Nth rep with sagging hips (0 = never)")
	noise := flag.Float64("noise", 0.5, "angle noise standard deviation in degrees")
	seed := flag.Uint64("seed", 1, "random seed")
	camera := flag.String("camera", "back", "camera position written to frames")
	flag.Parse()

	cam, err := pose.ParseCamera(*camera)
	if err != nil {
		log.Fatal(err)
	}
	if err := security.ValidateExportPath(*output); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	n, err := generate(bw, genOptions{
		Reps:     *reps,
		Steps:    *steps,
		FPS:      *fps,
		TopDeg:   172,
		DepthDeg: 75,
		SagEvery: *sag,
		Noise:    *noise,
		Seed:     *seed,
		Camera:   cam,
		Start:    time.Now().UTC(),
	})
	if err != nil {
		log.Fatalf("failed to write frames: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("failed to write frames: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames)", *output, n)
}
