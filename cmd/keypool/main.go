package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"eduvision/internal/infra"
	"eduvision/internal/infra/credentials"
)

// keypool prints the Krea key pool in trial order, masked, and exits non-zero
// when the API server would refuse to start.
func main() {
	var (
		envFile string
		keyFile string
	)
	flag.StringVar(&envFile, "env", "", "optional .env file to load before resolving keys")
	flag.StringVar(&keyFile, "keys-file", "", "YAML key file (fallbacks to KREA_API_KEYS_FILE)")
	flag.Parse()

	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	if strings.TrimSpace(keyFile) == "" {
		cfg, err := infra.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}
		keyFile = cfg.KreaKeysFile
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "keypool").Logger()
	pool, err := credentials.LoadPool(os.LookupEnv, keyFile)
	if err != nil {
		logger.Error().Err(err).Msg("credential pool unusable")
		os.Exit(1)
	}

	for i, key := range pool.Keys() {
		fmt.Printf("%2d  %s\n", i+1, credentials.Mask(key))
	}
	fmt.Printf("%d Krea API key(s) configured\n", pool.Len())
}
