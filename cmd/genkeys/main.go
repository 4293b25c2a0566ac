package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"signalcore/configs"
	"signalcore/keys"
	"signalcore/keystore"
)

var logger = logrus.New()

func main() {
	configs.Load()

	storePath := flag.String("store", configs.StoragePath(), "path to the key store document")
	preKeyCount := flag.Int("prekeys", 10, "number of one-time pre-keys to generate")
	signedPreKeyID := flag.Uint("signed-prekey-id", 1, "ID for the signed pre-key")
	flag.Parse()

	store, err := keystore.NewFileStore(*storePath, logger)
	if err != nil {
		logger.Fatalf("Failed to open key store: %v", err)
	}

	ctx := context.Background()

	identity, err := keys.GenerateIdentityKeyPair()
	if err != nil {
		logger.Fatalf("Failed to generate identity key pair: %v", err)
	}
	if err := store.SaveIdentityKeyPair(ctx, identity); err != nil {
		logger.Fatalf("Failed to save identity key pair: %v", err)
	}

	signed, err := keys.NewSignedPreKeyPair(identity, uint32(*signedPreKeyID))
	if err != nil {
		logger.Fatalf("Failed to generate signed pre-key: %v", err)
	}
	if err := store.SaveSignedPreKeyPair(ctx, signed); err != nil {
		logger.Fatalf("Failed to save signed pre-key: %v", err)
	}

	oneTime, err := keys.GenerateOneTimePreKeys(1, *preKeyCount)
	if err != nil {
		logger.Fatalf("Failed to generate one-time pre-keys: %v", err)
	}
	for _, pk := range oneTime {
		if err := store.SavePreKeyPair(ctx, &pk.PreKeyPair); err != nil {
			logger.Fatalf("Failed to save pre-key %d: %v", pk.ID, err)
		}
	}

	// Print only public material in hex format
	fmt.Printf("IDENTITY PUBLIC: %s\n", identity.PublicKey.Hex())
	fmt.Printf("VERIFY KEY:      %s\n", identity.VerifyKey.Hex())
	fmt.Printf("SIGNED PREKEY:   %s (id %d)\n", signed.Pair.Pub.Hex(), signed.ID)

	logger.Infof("Wrote identity, signed pre-key and %d one-time pre-keys to %s", len(oneTime), *storePath)
}
