package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex implements Index using Redis GEO commands.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: client, key: key}
}

func (r *RedisIndex) Upsert(ctx context.Context, p Position) error {
	if p.Updated.IsZero() {
		p.Updated = time.Now()
	}
	name := member(p.DriverID)
	// store as GEOADD and HSET for metadata
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: p.Lon, Latitude: p.Lat, Name: name}).Err(); err != nil {
		return fmt.Errorf("geoadd driver %d: %w", p.DriverID, err)
	}
	if err := r.client.HSet(ctx, metaKey(name), map[string]interface{}{"updated": p.Updated.UTC().Format(time.RFC3339)}).Err(); err != nil {
		return fmt.Errorf("hset driver %d: %w", p.DriverID, err)
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, driverID int64) error {
	name := member(driverID)
	if err := r.client.ZRem(ctx, r.key, name).Err(); err != nil {
		return fmt.Errorf("zrem driver %d: %w", driverID, err)
	}
	return r.client.Del(ctx, metaKey(name)).Err()
}

func (r *RedisIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]Position, error) {
	q := &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}
	res, err := r.client.GeoSearchLocation(ctx, r.key, q).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}
	out := make([]Position, 0, len(res))
	for _, g := range res {
		id, err := strconv.ParseInt(g.Name, 10, 64)
		if err != nil {
			continue
		}
		p := Position{DriverID: id, Lat: g.Latitude, Lon: g.Longitude, DistanceMeters: g.Dist}
		// try to fetch metadata
		if v, err := r.client.HGet(ctx, metaKey(g.Name), "updated").Result(); err == nil {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				p.Updated = ts
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func member(id int64) string { return strconv.FormatInt(id, 10) }

func metaKey(name string) string { return "driver:meta:" + name }
