package region

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/scripthost/script-engine/errors"
)

// Mode is a container's access mode, fixed at creation time.
type Mode int

const (
	// ModeMemory holds code in memory only.
	ModeMemory Mode = iota
	// ModePersist additionally allows flushing emitted images to disk for
	// diagnostics and testing.
	ModePersist
)

// Fixed dump file names for diagnostic flushes, one per region variant.
const (
	ReclaimableDumpFile = "region-cd.wasm"
	PersistentDumpFile  = "region-ud.wasm"
)

// Container is the physical destination for emitted code of one region.
// It is created at most once per region per engine instance and exclusively
// owned by its region. Container implements scriptengine.CodeSink.
type Container struct {
	identity string
	mode     Mode
	dumpFile string

	mu     sync.Mutex
	images [][]byte
}

func newContainer(identity string, mode Mode, dumpFile string) *Container {
	return &Container{
		identity: identity,
		mode:     mode,
		dumpFile: dumpFile,
	}
}

// Name returns the container's generated identity.
func (c *Container) Name() string {
	return c.identity
}

// Mode returns the access mode fixed at creation.
func (c *Container) Mode() Mode {
	return c.mode
}

// Record attaches an emitted image to the container.
func (c *Container) Record(image []byte) {
	if len(image) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, image)
}

// Images returns a snapshot of the recorded images.
func (c *Container) Images() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.images))
	copy(out, c.images)
	return out
}

// Flush writes the recorded images to the container's fixed dump file under
// dir and returns the file path. Only containers created in ModePersist can
// flush.
func (c *Container) Flush(dir string) (string, error) {
	if c.mode != ModePersist {
		return "", errors.InvalidInput(errors.PhaseBuild, "container is execute-only")
	}

	c.mu.Lock()
	var buf []byte
	for _, img := range c.images {
		buf = append(buf, img...)
	}
	c.mu.Unlock()

	path := filepath.Join(dir, c.dumpFile)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", errors.Wrap(errors.PhaseBuild, errors.KindInvalidInput, err, "flush container")
	}
	return path, nil
}
