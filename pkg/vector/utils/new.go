package vectorutils

import (
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
	"github.com/papernoteco/folio/pkg/vector/chroma"
	"github.com/papernoteco/folio/pkg/vector/inmemory"
	"github.com/papernoteco/folio/pkg/vector/qdrant"
	"github.com/papernoteco/folio/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

// NewVectorDriver constructs the configured vector store driver. Target is
// provider-specific: a base URL for chroma, host:port for qdrant, a database
// path for sqlitevec, and unused for inmemory.
func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		host, port, err := splitHostPort(o.Target, 6334)
		if err != nil {
			return nil, fmt.Errorf("parsing qdrant target %q: %w", o.Target, err)
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:           host,
			Port:           port,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target string, defaultPort int) (string, int, error) {
	if target == "" {
		return "", 0, fmt.Errorf("target is required")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port in the target, use the provider default.
		return target, defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
