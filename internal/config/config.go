// Package config resolves the avatar client settings from an optional
// dotenv-style file and the process environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	EnvAPIBaseURL = "AVATAR_API_BASE_URL"
	EnvAPIKey     = "AVATAR_API_KEY"
	EnvMicrophone = "AVATAR_MICROPHONE"
)

const (
	MicrophoneMalgo     = "malgo"
	MicrophonePortAudio = "portaudio"
	MicrophoneNone      = "none"
)

var ErrMissingBaseURL = errors.New(EnvAPIBaseURL + " is not set")

type Config struct {
	APIBaseURL string
	APIKey     string
	Microphone string
}

// Load reads envFile (a missing file is not an error) and then the
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	fileValues := map[string]string{}
	if envFile != "" {
		var err error
		if fileValues, err = readEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}

	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return fileValues[key]
	}

	config := Config{
		APIBaseURL: lookup(EnvAPIBaseURL),
		APIKey:     lookup(EnvAPIKey),
		Microphone: lookup(EnvMicrophone),
	}
	if config.Microphone == "" {
		config.Microphone = MicrophoneMalgo
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingBaseURL
	}
	switch c.Microphone {
	case MicrophoneMalgo, MicrophonePortAudio, MicrophoneNone:
		return nil
	default:
		return fmt.Errorf("unknown microphone backend %q", c.Microphone)
	}
}

func readEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open env file %q: %w", path, err)
	}
	defer file.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan env file %q: %w", path, err)
	}
	return values, nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	for _, quote := range []string{`"`, "'"} {
		if strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) {
			return value[1 : len(value)-1]
		}
	}
	return value
}
