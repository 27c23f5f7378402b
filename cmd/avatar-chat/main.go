// Command avatar-chat is a terminal client for talking to a conversational
// avatar over a real-time session.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	avatar "github.com/koscakluka/ema-avatar/core"
	"github.com/koscakluka/ema-avatar/core/audio/miniaudio"
	"github.com/koscakluka/ema-avatar/core/audio/portaudio"
	"github.com/koscakluka/ema-avatar/core/provisioning"
	"github.com/koscakluka/ema-avatar/core/transport/websocket"
	"github.com/koscakluka/ema-avatar/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("avatar-chat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	envFile := flags.String("env", ".env", "dotenv file with AVATAR_* settings")
	apiBaseURL := flags.String("api", "", "session API base URL (overrides "+config.EnvAPIBaseURL+")")
	microphone := flags.String("mic", "", "microphone backend: malgo, portaudio or none")
	printSchema := flags.Bool("print-schema", false, "print the JSON schema of the session wire protocol and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *printSchema {
		schema, err := websocket.SchemaJSON()
		if err != nil {
			fmt.Fprintf(stderr, "avatar-chat: failed to render schema: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(schema))
		return 0
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "avatar-chat: failed to load config: %v\n", err)
		return 1
	}
	if *apiBaseURL != "" {
		cfg.APIBaseURL = *apiBaseURL
	}
	if *microphone != "" {
		cfg.Microphone = *microphone
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "avatar-chat: invalid config: %v\n", err)
		return 1
	}

	opts := []avatar.ManagerOption{
		avatar.WithProvisioner(provisioning.NewClient(cfg.APIBaseURL, provisioning.WithAPIKey(cfg.APIKey))),
		avatar.WithTransport(websocket.NewTransport()),
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		log.Printf("Warning: audio device unavailable, avatar audio will not play: %v", err)
	} else {
		defer audioClient.Close()
		opts = append(opts, avatar.WithTrackSink(audioClient))
	}

	switch cfg.Microphone {
	case config.MicrophoneMalgo:
		if audioClient != nil {
			opts = append(opts, avatar.WithMicrophone(audioClient))
		}
	case config.MicrophonePortAudio:
		opts = append(opts, avatar.WithMicrophone(portaudio.NewMicrophone(0)))
	}

	manager := avatar.NewManager(opts...)
	defer func() {
		if err := manager.Close(); err != nil {
			log.Printf("Warning: failed to close session: %v", err)
		}
	}()

	program := tea.NewProgram(newModel(manager), tea.WithAltScreen())
	unsubscribe := manager.Subscribe(func(snapshot avatar.Snapshot) {
		program.Send(snapshotMsg(snapshot))
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(stderr, "avatar-chat: %v\n", err)
		return 1
	}
	return 0
}
