package ordernumber

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces human-facing order numbers. Numbers are generated
// before the persistence transaction; uniqueness is ultimately enforced by
// the database constraint on orders.number.
type Generator struct {
	prefix string
}

// New builds a Generator with the given prefix, e.g. "KRM".
func New(prefix string) *Generator {
	if prefix == "" {
		prefix = "KRM"
	}
	return &Generator{prefix: prefix}
}

// Next returns a fresh collision-resistant order number such as
// KRM-01J8ZD3F9X1Y2Z3A4B5C6D7E8F.
func (g *Generator) Next() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	return fmt.Sprintf("%s-%s", g.prefix, id.String())
}
