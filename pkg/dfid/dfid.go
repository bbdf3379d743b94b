// Package dfid generates the deployment-wide stable logical item identifier.
package dfid

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

const randChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces DFIDs of the form DFID-YYYYMMDDTHHMMSS-SSSS-RAND,
// where SSSS is a per-process sequence reset every wall-clock second and
// RAND is at least 6 cryptographically random characters. The timestamp
// component is non-decreasing across successive calls on one process; the
// sequence counter resets each second to bound its width, and the random
// suffix masks within-second collisions at high throughput.
type Generator struct {
	now func() time.Time

	mu      sync.Mutex
	lastSec int64
	seq     uint32
}

// NewGenerator returns a Generator using wall-clock time.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Generate returns the next DFID.
func (g *Generator) Generate() string {
	now := g.now().UTC()
	sec := now.Unix()

	g.mu.Lock()
	if sec != g.lastSec {
		g.lastSec = sec
		g.seq = 0
	} else {
		g.seq++
	}
	seq := g.seq
	g.mu.Unlock()

	rnd, err := randomSuffix(8)
	if err != nil {
		// crypto/rand failure means the platform entropy source is broken;
		// a degraded but still unique suffix beats refusing to generate ids.
		rnd = fmt.Sprintf("%016x", now.UnixNano())
	}

	return fmt.Sprintf("DFID-%s-%04d-%s", now.Format("20060102T150405"), seq%10000, rnd)
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = randChars[int(b)%len(randChars)]
	}
	return string(out), nil
}
