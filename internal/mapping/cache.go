package mapping

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
)

// Cache parses and maps operations, keeping successfully mapped operations
// keyed by schema version, operation name and query text. Concurrent misses
// for the same key map once.
type Cache struct {
	mapper *Mapper
	cache  *ristretto.Cache[uint64, *Operation]
	sf     singleflight.Group
	logger *zap.Logger
}

// NewCache creates a cache holding up to size mapped operations. A size of
// zero or less disables caching; every Load maps afresh.
func NewCache(mapper *Mapper, size int64, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{mapper: mapper, logger: logger}
	if size <= 0 {
		return c, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, *Operation]{
		NumCounters:        size * 10,
		MaxCost:            size,
		IgnoreInternalCost: true,
		BufferItems:        64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Mapper returns the mapper used on cache misses.
func (c *Cache) Mapper() *Mapper { return c.mapper }

type loadResult struct {
	op   *Operation
	errs []gqlerrors.GraphQLError
}

// Load returns the mapped operation for query and operationName.
func (c *Cache) Load(query, operationName string) (*Operation, []gqlerrors.GraphQLError) {
	key := c.key(query, operationName)
	if c.cache != nil {
		if op, ok := c.cache.Get(key); ok && op != nil {
			return op, nil
		}
	}
	v, _, _ := c.sf.Do(strconv.FormatUint(key, 10), func() (any, error) {
		c.logger.Debug("mapping operation",
			zap.String("operation_name", operationName),
			zap.Uint64("operation_hash", key),
		)
		doc, err := language.ParseQuery(query)
		if err != nil {
			return loadResult{errs: []gqlerrors.GraphQLError{parseError(err)}}, nil
		}
		op, errs := c.mapper.Map(doc, operationName)
		if len(errs) == 0 && c.cache != nil {
			c.cache.Set(key, op, 1)
			c.cache.Wait()
		}
		return loadResult{op: op, errs: errs}, nil
	})
	res := v.(loadResult)
	return res.op, res.errs
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

func (c *Cache) key(query, operationName string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(c.mapper.schema.Version)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(operationName)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(query)
	return d.Sum64()
}

func parseError(err error) gqlerrors.GraphQLError {
	ge := gqlerrors.New(gqlerrors.KindBadRequest, "%s", err.Error())
	var perr *language.Error
	if errors.As(err, &perr) {
		ge.Message = perr.Message
		ge.Locations = perr.Locations
	}
	return ge
}
