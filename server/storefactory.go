package server

import (
	"net"
	"strconv"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/tutorlab/signaling/server/logger"
	"github.com/tutorlab/signaling/server/multierr"
)

// StoreFactory builds the connection and room stores from configuration. With
// the redis store type a single RedisStore backs both registries so multiple
// relay instances share presence; the default memory stores are scoped to one
// process.
type StoreFactory struct {
	Connections ConnectionStore
	Rooms       RoomStore

	pubClient *redis.Client
	subClient *redis.Client
}

func NewStoreFactory(log logger.Logger, c StoreConfig) (*StoreFactory, error) {
	log = log.WithNamespaceAppended("store_factory")

	f := &StoreFactory{}

	switch c.Type {
	case StoreTypeRedis:
		addr := net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))

		log.Info("Using RedisStore", logger.Ctx{
			"remote_addr": addr,
			"prefix":      c.Redis.Prefix,
		})

		f.pubClient = redis.NewClient(&redis.Options{
			Addr: addr,
		})
		f.subClient = redis.NewClient(&redis.Options{
			Addr: addr,
		})

		store, err := NewRedisStore(log, f.pubClient, f.subClient, c.Redis.Prefix)
		if err != nil {
			return nil, errors.Annotate(err, "new redis store")
		}

		f.Connections = store
		f.Rooms = store
	default:
		log.Info("Using memory stores", nil)

		f.Connections = NewMemoryConnectionStore()
		f.Rooms = NewMemoryRoomStore()
	}

	return f, nil
}

func (f *StoreFactory) Close() error {
	errs := multierr.New()

	errs.Add(f.Rooms.Close())

	// A RedisStore backs both registries with one subscription; don't close
	// it twice.
	if any(f.Connections) != any(f.Rooms) {
		errs.Add(f.Connections.Close())
	}

	if f.pubClient != nil {
		errs.Add(f.pubClient.Close())
	}

	if f.subClient != nil {
		errs.Add(f.subClient.Close())
	}

	return errors.Trace(errs.Err())
}
