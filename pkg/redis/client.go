// Package redis provides the driver geo index backed by a Redis GEO set.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const driversGeoKey = "drivers:geo"

// Client indexes available drivers by position. It satisfies the driver
// service's GeoIndex; the registry stays the source of truth.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr, password string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Println("Connected to Redis")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		log.Printf("Waiting for Redis... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

// SetDriverLocation stores a driver's position in the GEO set.
func (c *Client) SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, driversGeoKey, &goredis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// RemoveDriver drops a driver from the GEO set, e.g. once reserved.
func (c *Client) RemoveDriver(ctx context.Context, driverID string) error {
	return c.rdb.ZRem(ctx, driversGeoKey, driverID).Err()
}

// NearbyDrivers returns driver ids within radiusKm of (lat,lng), nearest
// first.
func (c *Client) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error) {
	return c.rdb.GeoSearch(ctx, driversGeoKey, &goredis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Count:      limit,
		Sort:       "ASC",
	}).Result()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
