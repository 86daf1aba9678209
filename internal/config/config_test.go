package config

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "REDIS_ADDR", "KAFKA_BROKERS", "CART_TTL", "NOTIFIER_WORKERS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.StoreDriver != "postgres" || c.RedisAddr != "redis:6379" || c.CartTTL != 24*time.Hour || c.NotifierWorkers != 4 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if !reflect.DeepEqual(c.KafkaBrokers, []string{"kafka:9092"}) {
		t.Fatalf("brokers = %v", c.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("REDIS_ADDR", "none")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("CART_TTL", "90m")
	t.Setenv("NOTIFIER_WORKERS", "-3")

	c := Load()
	if c.StoreDriver != "sqlite" {
		t.Fatalf("driver = %q", c.StoreDriver)
	}
	if c.RedisAddr != "" {
		t.Fatalf("none must disable redis, got %q", c.RedisAddr)
	}
	if !reflect.DeepEqual(c.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers = %v", c.KafkaBrokers)
	}
	if c.CartTTL != 90*time.Minute || c.NotifierWorkers != 4 {
		t.Fatalf("ttl=%v workers=%d", c.CartTTL, c.NotifierWorkers)
	}

	t.Setenv("KAFKA_BROKERS", "none")
	if got := Load().KafkaBrokers; len(got) != 0 {
		t.Fatalf("none must disable kafka, got %v", got)
	}
}

func TestJWTSecretRequiredOutsideMemory(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")
	c := Load()
	if c.JWTSecret != "" {
		t.Fatalf("postgres must not get a default secret, got %q", c.JWTSecret)
	}
	if err := c.Validate(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("want ErrMissingJWTSecret, got %v", err)
	}

	t.Setenv("STORE_DRIVER", "memory")
	if c := Load(); c.JWTSecret != devJWTSecret || c.Validate() != nil {
		t.Fatalf("memory driver: secret=%q err=%v", c.JWTSecret, c.Validate())
	}

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "s3cret")
	if c := Load(); c.JWTSecret != "s3cret" || c.Validate() != nil {
		t.Fatalf("explicit secret: %q %v", c.JWTSecret, c.Validate())
	}
}
