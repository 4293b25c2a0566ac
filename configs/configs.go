package configs

import (
	"os"

	"github.com/joho/godotenv"
)

var (
	DefaultStoragePath  = "signalcore.json"
	DefaultRedisAddress = "localhost:6379"

	// Redis keys, parameterized by account ID

	StoreIdentityKey      = "keystore:%s:identity"
	StorePreKeysKey       = "keystore:%s:prekeys"
	StoreSignedPreKeysKey = "keystore:%s:signed_prekeys"
	StoreSessionsKey      = "keystore:%s:sessions"
)

// Load reads the optional .env file into the process environment. Missing
// files are not an error; explicit environment variables win.
func Load() {
	_ = godotenv.Load()
}

// StoragePath is the key store document location.
func StoragePath() string {
	return getenv("SIGNALCORE_STORE_PATH", DefaultStoragePath)
}

// RedisAddress is the address of the Redis-backed key store.
func RedisAddress() string {
	return getenv("SIGNALCORE_REDIS_ADDR", DefaultRedisAddress)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
