package vecmig

import (
	"time"

	"github.com/semaphoric/vecmig/core"
)

// Snapshot is a point-in-time view of migration progress, read from the
// checkpoint without touching the databases.
type Snapshot struct {
	Tables    map[string]core.TableProgress `json:"tables"`
	Stats     core.Stats                    `json:"stats"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}
